package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/astimpay-bridge/internal/store"
)

func TestParseOrderStatus(t *testing.T) {
	cases := map[string]store.OrderStatus{
		"pending":    store.StatusPending,
		"Processing": store.StatusProcessing,
		"on-hold":    store.StatusOnHold,
		"on_hold":    store.StatusOnHold,
		"COMPLETED":  store.StatusCompleted,
	}
	for input, want := range cases {
		got, err := store.ParseOrderStatus(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := store.ParseOrderStatus("refunded")
	require.Error(t, err)
}

func TestMemoryMarkOrderPaidIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateOrder(ctx, &store.Order{ID: 1, Status: store.StatusPending}))

	require.NoError(t, mem.MarkOrderPaid(ctx, 1, "TX1"))
	first, err := mem.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)

	require.NoError(t, mem.MarkOrderPaid(ctx, 1, "TX2"))
	second, err := mem.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "TX1", second.TransactionID)
	require.Equal(t, first.PaidAt, second.PaidAt)
}

func TestMemoryUpdateStatusAppendsNote(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.CreateOrder(ctx, &store.Order{ID: 1, Status: store.StatusPending}))

	require.NoError(t, mem.UpdateOrderStatus(ctx, 1, store.StatusOnHold, "Payment is on hold. Please check manually."))

	order, err := mem.GetOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, store.StatusOnHold, order.Status)

	notes, err := mem.ListOrderNotes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "Payment is on hold. Please check manually.", notes[0].Note)
}

func TestMemoryUnknownOrder(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	_, err := mem.GetOrder(ctx, 42)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, mem.UpdateOrderStatus(ctx, 42, store.StatusPending, ""), store.ErrNotFound)
	require.ErrorIs(t, mem.SavePaymentData(ctx, 42, store.PaymentData{}), store.ErrNotFound)
}
