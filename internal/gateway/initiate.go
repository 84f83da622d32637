package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/astimpay-bridge/internal/events"
	"github.com/noah-isme/astimpay-bridge/internal/obs"
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// Carts abstracts the checkout cart storage cleared after a session is open.
type Carts interface {
	Clear(ctx context.Context, cartID string) error
}

// RedirectInstruction is the checkout-facing result of a successful
// initiation.
type RedirectInstruction struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect"`
}

// Initiator creates provider payment sessions for orders. One instance per
// configured gateway.
type Initiator struct {
	Store  store.Store
	Client Client
	Carts  Carts
	Events *events.Bus
	Cfg    Config
}

// Initiate opens a payment session for the order and returns the redirect
// the shopper should follow. The pending-status write and cart clear happen
// only after the provider confirms the session; a failed create leaves the
// order exactly as it was.
func (s *Initiator) Initiate(ctx context.Context, orderID int64) (RedirectInstruction, error) {
	var zero RedirectInstruction
	if s == nil || s.Store == nil || s.Client == nil {
		return zero, errors.New("gateway: initiator not configured")
	}
	ctx, span := otel.Tracer("gateway.Initiator").Start(ctx, "Initiator.Initiate")
	defer span.End()

	start := time.Now()
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("gateway.id", s.Cfg.ID),
			attribute.Int64("order.id", orderID),
			attribute.Float64("gateway.initiate.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("gateway.initiate.result", result),
		)
		if obs.PaymentInitTotal != nil {
			obs.PaymentInitTotal.WithLabelValues(s.Cfg.ID, result).Inc()
		}
	}()

	order, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, fmt.Errorf("%w: order %d", ErrInvalidOrder, orderID)
		}
		return zero, err
	}

	amount, currency, err := ResolveAmount(order, s.Cfg.Mode)
	if err != nil {
		return zero, err
	}

	session, err := s.Client.CreatePayment(ctx, CreatePaymentRequest{
		Amount:     amount,
		Currency:   currency,
		PayerName:  order.BillingName,
		PayerEmail: order.BillingEmail,
		Metadata: SessionMetadata{
			OrderID:     OrderRef(order.ID),
			RedirectURL: s.Cfg.returnURL(order.ID),
			PaymentType: string(s.Cfg.Mode),
		},
		SuccessURL:   s.Cfg.CallbackURL(),
		CancelURL:    s.Cfg.cancelURL(order.ID),
		NotifyURL:    s.Cfg.CallbackURL(),
		ExchangeRate: s.Cfg.ExchangeRate,
	})
	if err != nil {
		span.RecordError(err)
		return zero, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if session.PaymentURL == "" {
		msg := session.Message
		if msg == "" {
			msg = "payment URL not received"
		}
		return zero, fmt.Errorf("%w: %s", ErrProvider, msg)
	}

	if err := s.Store.UpdateOrderStatus(ctx, order.ID, store.StatusPending,
		fmt.Sprintf("Awaiting %s payment", s.Cfg.Mode.label())); err != nil {
		return zero, err
	}
	_ = s.Store.AppendOrderNote(ctx, order.ID,
		fmt.Sprintf("%s payment initiated for amount: %s", s.Cfg.Mode.label(), formatAmount(amount)))
	if s.Carts != nil && order.CartID != "" {
		_ = s.Carts.Clear(ctx, order.CartID)
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicPaymentInitiated, order.ID, map[string]any{
			"gateway":  s.Cfg.ID,
			"mode":     string(s.Cfg.Mode),
			"amount":   amount,
			"currency": currency,
		})
	}

	result = "success"
	return RedirectInstruction{Result: "success", Redirect: session.PaymentURL}, nil
}
