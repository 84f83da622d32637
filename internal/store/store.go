package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// OrderStatus enumerates the order statuses this service reads and writes.
// The store system may carry additional statuses; those pass through untouched.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
)

// ParseOrderStatus converts a configured status name into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return StatusPending, nil
	case "on-hold", "on_hold", "onhold":
		return StatusOnHold, nil
	case "processing":
		return StatusProcessing, nil
	case "completed":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("store: unknown order status %q", value)
	}
}

// LineItem is a single purchased item. ProductID is zero when the item no
// longer resolves to a product (deleted or never linked).
type LineItem struct {
	ProductID      int64
	IsVirtual      bool
	IsDownloadable bool
}

// Resolved reports whether the line item still references a product.
func (li LineItem) Resolved() bool { return li.ProductID != 0 }

// Order mirrors the store system's order record.
type Order struct {
	ID            int64
	Status        OrderStatus
	Currency      string
	BillingName   string
	BillingEmail  string
	ShippingTotal float64
	OrderTotal    float64
	CartID        string
	TransactionID string
	PaidAt        *time.Time
	Items         []LineItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentData is the last provider confirmation attached to an order. It is
// overwritten on every non-terminal confirmation and surfaced read-only to
// operators.
type PaymentData struct {
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	SenderNumber  string    `json:"sender_number"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	InvoiceID     string    `json:"invoice_id"`
	PaymentType   string    `json:"payment_type"`
	ReceivedAt    time.Time `json:"received_at"`
}

// Note is an operator-visible order annotation.
type Note struct {
	ID        int64
	OrderID   int64
	Note      string
	CreatedAt time.Time
}

// Store is the persistence boundary for orders and their payment state.
type Store interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// UpdateOrderStatus writes the new status and appends the note in one
	// durable step.
	UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus, note string) error
	// MarkOrderPaid records the provider transaction against the order and
	// stamps paid_at. It is a no-op when the order was already marked paid.
	MarkOrderPaid(ctx context.Context, id int64, transactionID string) error
	SavePaymentData(ctx context.Context, id int64, data PaymentData) error
	GetPaymentData(ctx context.Context, id int64) (*PaymentData, error)
	AppendOrderNote(ctx context.Context, id int64, note string) error
	ListOrderNotes(ctx context.Context, id int64) ([]Note, error)
	InsertDomainEvent(ctx context.Context, topic string, orderID int64, payload []byte) (int64, error)
}
