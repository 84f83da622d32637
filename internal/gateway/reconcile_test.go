package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/astimpay-bridge/internal/events"
	"github.com/noah-isme/astimpay-bridge/internal/gateway"
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

const testAPIKey = "brand-key-123"

type fakeClient struct {
	session      gateway.PaymentSession
	createErr    error
	confirmation gateway.Confirmation
	verifyErr    error
	createCalls  int
	verifyCalls  int
}

func (f *fakeClient) CreatePayment(_ context.Context, _ gateway.CreatePaymentRequest) (gateway.PaymentSession, error) {
	f.createCalls++
	if f.createErr != nil {
		return gateway.PaymentSession{}, f.createErr
	}
	return f.session, nil
}

func (f *fakeClient) VerifyPayment(_ context.Context, _ string) (gateway.Confirmation, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return gateway.Confirmation{}, f.verifyErr
	}
	return f.confirmation, nil
}

func testConfig(mode gateway.Mode) gateway.Config {
	cfg := gateway.Config{
		ID:            "astimpay",
		Mode:          mode,
		APIKey:        testAPIKey,
		APIURL:        "https://pay.example.com",
		ExchangeRate:  120,
		PublicBaseURL: "https://shop.example.com",
	}
	if mode == gateway.ModeShippingOnly {
		cfg.ID = "astimpay_shipping"
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newReconciler(t *testing.T, mode gateway.Mode, client gateway.Client) (*gateway.Reconciler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	rec := &gateway.Reconciler{
		Store:    mem,
		Client:   client,
		Events:   &events.Bus{Store: mem},
		Validate: validator.New(),
		Cfg:      testConfig(mode),
	}
	return rec, mem
}

func seedOrder(t *testing.T, mem *store.Memory, order store.Order) {
	t.Helper()
	require.NoError(t, mem.CreateOrder(context.Background(), &order))
}

func physicalOrder(id int64) store.Order {
	return store.Order{
		ID:            id,
		Status:        store.StatusPending,
		Currency:      "BDT",
		OrderTotal:    200,
		ShippingTotal: 60,
		Items:         []store.LineItem{{ProductID: 1}},
	}
}

func completedConfirmation(orderID int64) gateway.Confirmation {
	return gateway.Confirmation{
		Status:        gateway.StatusCompleted,
		Metadata:      gateway.SessionMetadata{OrderID: gateway.OrderRef(orderID), RedirectURL: "https://shop.example.com/order-received?order_id=100"},
		PaymentMethod: "bKash",
		SenderNumber:  "01700000000",
		Amount:        200,
		TransactionID: "TX1",
		InvoiceID:     "INV-1",
	}
}

func TestAuthenticateKey(t *testing.T) {
	require.True(t, gateway.AuthenticateKey("secret", "secret"))
	require.False(t, gateway.AuthenticateKey("wrong", "secret"))
	require.False(t, gateway.AuthenticateKey("", "secret"))
	require.False(t, gateway.AuthenticateKey("secret", ""))
	require.False(t, gateway.AuthenticateKey("", ""))
}

func TestCompletedPaymentMovesPhysicalOrderToProcessing(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})
	seedOrder(t, mem, physicalOrder(100))

	require.NoError(t, rec.Apply(context.Background(), completedConfirmation(100)))

	order, err := mem.GetOrder(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, store.StatusProcessing, order.Status)
	require.NotNil(t, order.PaidAt)
	require.Equal(t, "TX1", order.TransactionID)

	data, err := mem.GetPaymentData(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "bKash", data.PaymentMethod)
	require.Equal(t, 200.0, data.Amount)
	require.Equal(t, "TX1", data.TransactionID)
}

func TestCompletedPaymentMovesVirtualOrderToCompleted(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})
	seedOrder(t, mem, store.Order{
		ID:         101,
		Status:     store.StatusPending,
		Currency:   "BDT",
		OrderTotal: 350,
		Items:      []store.LineItem{{ProductID: 1, IsVirtual: true}, {ProductID: 2, IsDownloadable: true}},
	})

	payload := completedConfirmation(101)
	require.NoError(t, rec.Apply(context.Background(), payload))

	order, err := mem.GetOrder(context.Background(), 101)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, order.Status)
}

func TestNonCompletedPaymentHoldsOrder(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})
	seedOrder(t, mem, physicalOrder(100))

	payload := completedConfirmation(100)
	payload.Status = gateway.StatusPending
	require.NoError(t, rec.Apply(context.Background(), payload))

	order, err := mem.GetOrder(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, store.StatusOnHold, order.Status)
	require.Nil(t, order.PaidAt)

	// The ambiguous confirmation is still recorded for the operator.
	data, err := mem.GetPaymentData(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, gateway.StatusPending, data.Status)
}

func TestCompletedOrderIsTerminal(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})
	seedOrder(t, mem, physicalOrder(100))

	require.NoError(t, rec.Apply(context.Background(), completedConfirmation(100)))
	// Force terminal state, then replay the same confirmation.
	require.NoError(t, mem.UpdateOrderStatus(context.Background(), 100, store.StatusCompleted, ""))
	notesBefore, err := mem.ListOrderNotes(context.Background(), 100)
	require.NoError(t, err)

	replay := completedConfirmation(100)
	replay.TransactionID = "TX-LATE"
	require.NoError(t, rec.Apply(context.Background(), replay))

	order, err := mem.GetOrder(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, store.StatusCompleted, order.Status)
	require.Equal(t, "TX1", order.TransactionID)

	data, err := mem.GetPaymentData(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, "TX1", data.TransactionID)

	notesAfter, err := mem.ListOrderNotes(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, notesAfter, len(notesBefore))
}

func TestBothChannelsConverge(t *testing.T) {
	client := &fakeClient{confirmation: completedConfirmation(100)}
	rec, mem := newReconciler(t, gateway.ModeFullOrder, client)
	seedOrder(t, mem, physicalOrder(100))

	// Webhook lands first.
	body, err := json.Marshal(completedConfirmation(100))
	require.NoError(t, err)
	require.NoError(t, rec.ApplyNotification(context.Background(), testAPIKey, body))

	// The returning browser verifies afterwards; the order must not move.
	redirect, err := rec.VerifyAndApply(context.Background(), "INV-1")
	require.NoError(t, err)
	require.Equal(t, "https://shop.example.com/order-received?order_id=100", redirect)

	order, err := mem.GetOrder(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, store.StatusProcessing, order.Status)
	require.Equal(t, "TX1", order.TransactionID)
}

func TestShippingOnlySettlementSkipsPaidMarker(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeShippingOnly, &fakeClient{})
	seedOrder(t, mem, physicalOrder(100))

	require.NoError(t, rec.Apply(context.Background(), completedConfirmation(100)))

	order, err := mem.GetOrder(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, store.StatusProcessing, order.Status)
	require.Nil(t, order.PaidAt)
	require.Empty(t, order.TransactionID)
}

func TestApplyNotificationRequiresValidKey(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})
	seedOrder(t, mem, physicalOrder(100))

	body, err := json.Marshal(completedConfirmation(100))
	require.NoError(t, err)

	err = rec.ApplyNotification(context.Background(), "wrong-key", body)
	require.ErrorIs(t, err, gateway.ErrUnauthenticated)

	// Nothing was interpreted, so nothing changed.
	order, getErr := mem.GetOrder(context.Background(), 100)
	require.NoError(t, getErr)
	require.Equal(t, store.StatusPending, order.Status)
	_, dataErr := mem.GetPaymentData(context.Background(), 100)
	require.ErrorIs(t, dataErr, store.ErrNotFound)
}

func TestApplyNotificationRejectsMalformedPayloads(t *testing.T) {
	rec, _ := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})

	cases := map[string][]byte{
		"empty body":     []byte("   "),
		"invalid json":   []byte("{not json"),
		"missing status": []byte(`{"metadata":{"order_id":100}}`),
		"missing order":  []byte(`{"status":"COMPLETED","metadata":{}}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := rec.ApplyNotification(context.Background(), testAPIKey, body)
			require.ErrorIs(t, err, gateway.ErrMalformedPayload)
		})
	}
}

func TestApplyNotificationAcceptsStringOrderIDAndAmount(t *testing.T) {
	rec, mem := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})
	seedOrder(t, mem, physicalOrder(100))

	body := []byte(`{
		"status": "COMPLETED",
		"metadata": {"order_id": "100", "redirect_url": "https://shop.example.com/done", "payment_type": "full_order"},
		"payment_method": "Nagad",
		"sender_number": "01800000000",
		"amount": "200.00",
		"transaction_id": "TX2",
		"invoice_id": "INV-2"
	}`)
	require.NoError(t, rec.ApplyNotification(context.Background(), testAPIKey, body))

	data, err := mem.GetPaymentData(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 200.0, data.Amount)
	require.Equal(t, "TX2", data.TransactionID)
}

func TestVerifyAndApplyRejectsUnverifiableInvoices(t *testing.T) {
	client := &fakeClient{verifyErr: errors.New("invoice not found")}
	rec, _ := newReconciler(t, gateway.ModeFullOrder, client)

	_, err := rec.VerifyAndApply(context.Background(), "INV-X")
	require.ErrorIs(t, err, gateway.ErrVerificationFailed)
}

func TestVerifyAndApplyRequiresOrderReference(t *testing.T) {
	client := &fakeClient{confirmation: gateway.Confirmation{Status: gateway.StatusCompleted}}
	rec, _ := newReconciler(t, gateway.ModeFullOrder, client)

	_, err := rec.VerifyAndApply(context.Background(), "INV-1")
	require.ErrorIs(t, err, gateway.ErrVerificationFailed)
}

func TestApplyUnknownOrder(t *testing.T) {
	rec, _ := newReconciler(t, gateway.ModeFullOrder, &fakeClient{})

	err := rec.Apply(context.Background(), completedConfirmation(999))
	require.ErrorIs(t, err, gateway.ErrInvalidOrder)
}
