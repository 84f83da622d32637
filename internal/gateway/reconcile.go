package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/astimpay-bridge/internal/events"
	"github.com/noah-isme/astimpay-bridge/internal/lock"
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// AuthenticateKey compares the key presented on a notification request with
// the configured brand key in constant time. An empty configured key never
// authenticates.
func AuthenticateKey(presented, configured string) bool {
	configured = strings.TrimSpace(configured)
	presented = strings.TrimSpace(presented)
	if configured == "" || presented == "" {
		return false
	}
	return hmac.Equal([]byte(presented), []byte(configured))
}

// Reconciler converges an order onto its terminal status from provider
// confirmations, whichever channel they arrive on and however often.
type Reconciler struct {
	Store    store.Store
	Client   Client
	Events   *events.Bus
	Validate *validator.Validate
	// Locker serialises transitions per order. Correctness does not depend
	// on it (the terminal guard does that); it narrows the read-modify-write
	// race window between the two channels.
	Locker  *lock.Locker
	LockTTL time.Duration
	Cfg     Config
}

// VerifyAndApply drives the redirect-verification channel: the invoice id
// from the returning browser is re-verified against the provider, whose
// answer is the authenticated confirmation. Returns the storefront URL the
// shopper must be redirected to.
func (r *Reconciler) VerifyAndApply(ctx context.Context, invoiceID string) (string, error) {
	if r == nil || r.Client == nil {
		return "", errors.New("gateway: reconciler not configured")
	}
	ctx, span := otel.Tracer("gateway.Reconciler").Start(ctx, "Reconciler.VerifyAndApply")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.id", r.Cfg.ID),
		attribute.String("payment.invoice_id", invoiceID),
	)

	payload, err := r.Client.VerifyPayment(ctx, invoiceID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if payload.Metadata.OrderID == 0 {
		return "", fmt.Errorf("%w: no order reference in provider response", ErrVerificationFailed)
	}
	if err := r.Apply(ctx, payload); err != nil {
		return "", err
	}
	return payload.Metadata.RedirectURL, nil
}

// ApplyNotification drives the server notification channel: authenticate the
// presented key, then decode and validate the body, then apply the shared
// transition. Authentication happens before any byte of the payload is
// interpreted.
func (r *Reconciler) ApplyNotification(ctx context.Context, presentedKey string, body []byte) error {
	if !AuthenticateKey(presentedKey, r.Cfg.APIKey) {
		return ErrUnauthenticated
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty webhook payload", ErrMalformedPayload)
	}
	var payload Confirmation
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if r.Validate != nil {
		if err := r.Validate.Struct(payload); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}
	if payload.Metadata.OrderID == 0 {
		return fmt.Errorf("%w: order reference missing", ErrMalformedPayload)
	}
	return r.Apply(ctx, payload)
}

// Apply runs the shared transition, holding the per-order lock when one is
// configured.
func (r *Reconciler) Apply(ctx context.Context, payload Confirmation) error {
	if r.Locker == nil {
		return r.applyTransition(ctx, payload)
	}
	ttl := r.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	key := fmt.Sprintf("reconcile:order:%d", int64(payload.Metadata.OrderID))
	return r.Locker.WithLock(ctx, key, ttl, func(ctx context.Context) error {
		return r.applyTransition(ctx, payload)
	})
}

// applyTransition is the transition rule shared by both channels.
func (r *Reconciler) applyTransition(ctx context.Context, payload Confirmation) error {
	orderID := int64(payload.Metadata.OrderID)
	order, err := r.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: order %d", ErrInvalidOrder, orderID)
		}
		return err
	}

	// COMPLETED is terminal. Duplicate or late deliveries from either
	// channel land here and change nothing.
	if order.Status == store.StatusCompleted {
		return nil
	}

	if err := r.Store.SavePaymentData(ctx, order.ID, store.PaymentData{
		Status:        payload.Status,
		PaymentMethod: payload.PaymentMethod,
		SenderNumber:  payload.SenderNumber,
		Amount:        float64(payload.Amount),
		TransactionID: payload.TransactionID,
		InvoiceID:     payload.InvoiceID,
		PaymentType:   payload.Metadata.PaymentType,
		ReceivedAt:    time.Now(),
	}); err != nil {
		return err
	}

	if !payload.Completed() {
		// Never guess success from an ambiguous provider status.
		if err := r.Store.UpdateOrderStatus(ctx, order.ID, store.StatusOnHold,
			"Payment is on hold. Please check manually."); err != nil {
			return err
		}
		if r.Events != nil {
			_, _ = r.Events.Emit(ctx, events.TopicPaymentOnHold, order.ID, map[string]any{
				"gateway":        r.Cfg.ID,
				"providerStatus": payload.Status,
			})
		}
		return nil
	}

	target := r.Cfg.PhysicalProductStatus
	if IsVirtual(order) {
		target = r.Cfg.DigitalProductStatus
	}
	note := fmt.Sprintf("Payment via %s. Amount: %s, Transaction ID: %s",
		payload.PaymentMethod, formatAmount(float64(payload.Amount)), payload.TransactionID)
	if err := r.Store.UpdateOrderStatus(ctx, order.ID, target, note); err != nil {
		return err
	}
	if r.Cfg.Mode == ModeFullOrder {
		// Shipping-only settlement must not signal that the full order
		// balance was received, so only the full-order gateway records the
		// paid marker.
		if err := r.Store.MarkOrderPaid(ctx, order.ID, payload.TransactionID); err != nil {
			return err
		}
	}
	_ = r.Store.AppendOrderNote(ctx, order.ID, fmt.Sprintf("%s payment completed.", r.Cfg.Mode.label()))
	if r.Events != nil {
		_, _ = r.Events.Emit(ctx, events.TopicOrderPaid, order.ID, map[string]any{
			"gateway":       r.Cfg.ID,
			"mode":          string(r.Cfg.Mode),
			"transactionId": payload.TransactionID,
			"amount":        float64(payload.Amount),
		})
	}
	return nil
}
