package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/astimpay-bridge/internal/events"
	"github.com/noah-isme/astimpay-bridge/internal/gateway"
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

type fakeCarts struct {
	cleared []string
}

func (f *fakeCarts) Clear(_ context.Context, cartID string) error {
	f.cleared = append(f.cleared, cartID)
	return nil
}

func newInitiator(t *testing.T, mode gateway.Mode, client gateway.Client) (*gateway.Initiator, *store.Memory, *fakeCarts) {
	t.Helper()
	mem := store.NewMemory()
	carts := &fakeCarts{}
	ini := &gateway.Initiator{
		Store:  mem,
		Client: client,
		Carts:  carts,
		Events: &events.Bus{Store: mem},
		Cfg:    testConfig(mode),
	}
	return ini, mem, carts
}

func TestInitiateReturnsRedirect(t *testing.T) {
	client := &fakeClient{session: gateway.PaymentSession{PaymentURL: "https://pay.example.com/checkout/abc", InvoiceID: "INV-1"}}
	ini, mem, carts := newInitiator(t, gateway.ModeFullOrder, client)
	order := physicalOrder(100)
	order.Status = store.StatusOnHold
	order.CartID = "cart-100"
	seedOrder(t, mem, order)

	instruction, err := ini.Initiate(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "success", instruction.Result)
	require.Equal(t, "https://pay.example.com/checkout/abc", instruction.Redirect)

	updated, err := mem.GetOrder(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, store.StatusPending, updated.Status)
	require.Equal(t, []string{"cart-100"}, carts.cleared)

	notes, err := mem.ListOrderNotes(context.Background(), 100)
	require.NoError(t, err)
	require.NotEmpty(t, notes)

	evs := mem.Events()
	require.Len(t, evs, 1)
	require.Equal(t, events.TopicPaymentInitiated, evs[0].Topic)
}

func TestInitiateLeavesOrderUntouchedOnProviderFailure(t *testing.T) {
	client := &fakeClient{createErr: errors.New("connection refused")}
	ini, mem, carts := newInitiator(t, gateway.ModeFullOrder, client)
	order := physicalOrder(100)
	order.Status = store.StatusOnHold
	order.CartID = "cart-100"
	seedOrder(t, mem, order)

	_, err := ini.Initiate(context.Background(), 100)
	require.ErrorIs(t, err, gateway.ErrProvider)

	unchanged, getErr := mem.GetOrder(context.Background(), 100)
	require.NoError(t, getErr)
	require.Equal(t, store.StatusOnHold, unchanged.Status)
	require.Empty(t, carts.cleared)

	notes, notesErr := mem.ListOrderNotes(context.Background(), 100)
	require.NoError(t, notesErr)
	require.Empty(t, notes)
	require.Empty(t, mem.Events())
}

func TestInitiateRejectsSessionWithoutPaymentURL(t *testing.T) {
	client := &fakeClient{session: gateway.PaymentSession{Message: "brand suspended"}}
	ini, mem, _ := newInitiator(t, gateway.ModeFullOrder, client)
	seedOrder(t, mem, physicalOrder(100))

	_, err := ini.Initiate(context.Background(), 100)
	require.ErrorIs(t, err, gateway.ErrProvider)
	require.Contains(t, err.Error(), "brand suspended")
}

func TestInitiateUnknownOrder(t *testing.T) {
	ini, _, _ := newInitiator(t, gateway.ModeFullOrder, &fakeClient{})

	_, err := ini.Initiate(context.Background(), 404)
	require.ErrorIs(t, err, gateway.ErrInvalidOrder)
}

func TestInitiateShippingOnlyChargesShippingTotal(t *testing.T) {
	client := &fakeClient{session: gateway.PaymentSession{PaymentURL: "https://pay.example.com/checkout/abc"}}
	ini, mem, _ := newInitiator(t, gateway.ModeShippingOnly, client)
	seedOrder(t, mem, physicalOrder(100))

	_, err := ini.Initiate(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 1, client.createCalls)
}

func TestInitiateShippingOnlyWithoutShippingCharge(t *testing.T) {
	client := &fakeClient{session: gateway.PaymentSession{PaymentURL: "https://pay.example.com/checkout/abc"}}
	ini, mem, _ := newInitiator(t, gateway.ModeShippingOnly, client)
	order := physicalOrder(100)
	order.ShippingTotal = 0
	seedOrder(t, mem, order)

	_, err := ini.Initiate(context.Background(), 100)
	require.ErrorIs(t, err, gateway.ErrNoShippableAmount)
	require.Zero(t, client.createCalls)
}
