package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/astimpay-bridge/internal/gateway"
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

func TestResolveAmountFullOrder(t *testing.T) {
	order := &store.Order{ID: 1, Currency: "BDT", OrderTotal: 1260, ShippingTotal: 60}

	amount, currency, err := gateway.ResolveAmount(order, gateway.ModeFullOrder)
	require.NoError(t, err)
	require.Equal(t, 1260.0, amount)
	require.Equal(t, "BDT", currency)
}

func TestResolveAmountShippingOnly(t *testing.T) {
	order := &store.Order{ID: 1, Currency: "BDT", OrderTotal: 1260, ShippingTotal: 60}

	amount, currency, err := gateway.ResolveAmount(order, gateway.ModeShippingOnly)
	require.NoError(t, err)
	require.Equal(t, 60.0, amount)
	require.Equal(t, "BDT", currency)
}

func TestResolveAmountShippingOnlyWithoutShippingCharge(t *testing.T) {
	order := &store.Order{ID: 1, Currency: "BDT", OrderTotal: 350}

	_, _, err := gateway.ResolveAmount(order, gateway.ModeShippingOnly)
	require.ErrorIs(t, err, gateway.ErrNoShippableAmount)
}
