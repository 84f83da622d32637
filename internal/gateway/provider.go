package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// Provider-asserted confirmation statuses. Anything other than COMPLETED is
// treated as "hold for manual review".
const (
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
)

// SessionMetadata is attached to every payment session and echoed back by the
// provider in confirmations. OrderID and RedirectURL are how confirmations
// find their way home.
type SessionMetadata struct {
	OrderID     OrderRef `json:"order_id"`
	RedirectURL string   `json:"redirect_url"`
	PaymentType string   `json:"payment_type"`
}

// CreatePaymentRequest captures everything AstimPay needs to open a payment
// session. Constructed fresh per initiation; never persisted.
type CreatePaymentRequest struct {
	Amount       float64
	Currency     string
	PayerName    string
	PayerEmail   string
	Metadata     SessionMetadata
	SuccessURL   string
	CancelURL    string
	NotifyURL    string
	ExchangeRate float64
}

// PaymentSession is the provider's answer to a create-payment call.
type PaymentSession struct {
	PaymentURL string `json:"payment_url"`
	InvoiceID  string `json:"invoice_id"`
	Message    string `json:"message"`
}

// Confirmation is the normalised shape both confirmation channels produce:
// the verify-payment response on the redirect path and the decoded
// notification body on the webhook path.
type Confirmation struct {
	Status        string          `json:"status" validate:"required"`
	Metadata      SessionMetadata `json:"metadata"`
	PaymentMethod string          `json:"payment_method"`
	SenderNumber  string          `json:"sender_number"`
	Amount        Amount          `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	InvoiceID     string          `json:"invoice_id"`
}

// Completed reports whether the provider asserts this payment finished.
func (c Confirmation) Completed() bool {
	return strings.EqualFold(strings.TrimSpace(c.Status), StatusCompleted)
}

// Client is the synchronous boundary to the AstimPay API. It surfaces
// transport and API errors verbatim; no retries, no caching.
type Client interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentSession, error)
	VerifyPayment(ctx context.Context, invoiceID string) (Confirmation, error)
}

// OrderRef is an order identifier that tolerates the provider echoing it as
// either a JSON number or a string.
type OrderRef int64

func (r *OrderRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*r = 0
			return nil
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*r = OrderRef(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = OrderRef(n)
	return nil
}

// Amount is a monetary value that tolerates the provider sending it as a
// JSON number or a decimal string.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*a = Amount(parsed)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
