package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on top of a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres wraps the pool in a Store implementation.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

func (p *Postgres) CreateOrder(ctx context.Context, order *Order) error {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, status, currency, billing_name, billing_email,
			shipping_total, order_total, cart_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, order.ID, order.Status, order.Currency, order.BillingName, order.BillingEmail,
		order.ShippingTotal, order.OrderTotal, order.CartID, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("store: order %d already exists: %w", order.ID, err)
		}
		return fmt.Errorf("store: insert order: %w", err)
	}
	for _, item := range order.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, is_virtual, is_downloadable)
			VALUES ($1, $2, $3, $4)
		`, order.ID, item.ProductID, item.IsVirtual, item.IsDownloadable); err != nil {
			return fmt.Errorf("store: insert order item: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit order: %w", err)
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (p *Postgres) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order
	var paidAt *time.Time
	err := p.Pool.QueryRow(ctx, `
		SELECT id, status, currency, billing_name, billing_email,
			shipping_total, order_total, cart_id, COALESCE(transaction_id, ''),
			paid_at, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&order.ID, &order.Status, &order.Currency, &order.BillingName,
		&order.BillingEmail, &order.ShippingTotal, &order.OrderTotal, &order.CartID,
		&order.TransactionID, &paidAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get order %d: %w", id, err)
	}
	order.PaidAt = paidAt

	rows, err := p.Pool.Query(ctx, `
		SELECT product_id, is_virtual, is_downloadable
		FROM order_items WHERE order_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ProductID, &item.IsVirtual, &item.IsDownloadable); err != nil {
			return nil, fmt.Errorf("store: scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate order items: %w", err)
	}
	return &order, nil
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, id int64, status OrderStatus, note string) error {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("store: update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if note != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_notes (order_id, note) VALUES ($1, $2)
		`, id, note); err != nil {
			return fmt.Errorf("store: insert order note: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit status update: %w", err)
	}
	return nil
}

func (p *Postgres) MarkOrderPaid(ctx context.Context, id int64, transactionID string) error {
	// paid_at IS NULL keeps the write idempotent under concurrent delivery.
	_, err := p.Pool.Exec(ctx, `
		UPDATE orders SET transaction_id = $2, paid_at = now(), updated_at = now()
		WHERE id = $1 AND paid_at IS NULL
	`, id, transactionID)
	if err != nil {
		return fmt.Errorf("store: mark order paid: %w", err)
	}
	return nil
}

func (p *Postgres) SavePaymentData(ctx context.Context, id int64, data PaymentData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("store: encode payment data: %w", err)
	}
	tag, err := p.Pool.Exec(ctx, `
		UPDATE orders SET payment_data = $2, updated_at = now() WHERE id = $1
	`, id, encoded)
	if err != nil {
		return fmt.Errorf("store: save payment data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetPaymentData(ctx context.Context, id int64) (*PaymentData, error) {
	var encoded []byte
	err := p.Pool.QueryRow(ctx, `
		SELECT payment_data FROM orders WHERE id = $1
	`, id).Scan(&encoded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get payment data: %w", err)
	}
	if len(encoded) == 0 {
		return nil, ErrNotFound
	}
	var data PaymentData
	if err := json.Unmarshal(encoded, &data); err != nil {
		return nil, fmt.Errorf("store: decode payment data: %w", err)
	}
	return &data, nil
}

func (p *Postgres) AppendOrderNote(ctx context.Context, id int64, note string) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO order_notes (order_id, note) VALUES ($1, $2)
	`, id, note)
	if err != nil {
		return fmt.Errorf("store: append order note: %w", err)
	}
	return nil
}

func (p *Postgres) ListOrderNotes(ctx context.Context, id int64) ([]Note, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, order_id, note, created_at
		FROM order_notes WHERE order_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: list order notes: %w", err)
	}
	defer rows.Close()
	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (p *Postgres) InsertDomainEvent(ctx context.Context, topic string, orderID int64, payload []byte) (int64, error) {
	var id int64
	err := p.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (topic, order_id, payload) VALUES ($1, $2, $3)
		RETURNING id
	`, topic, orderID, payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert domain event: %w", err)
	}
	return id, nil
}
