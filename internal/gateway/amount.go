package gateway

import (
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// ResolveAmount selects the charge amount and currency code for an order
// under the given mode. Currency conversion is never performed here: when the
// store currency differs from the provider's settlement currency the
// configured exchange rate travels with the session and the provider applies
// it, which keeps rounding in one place.
func ResolveAmount(order *store.Order, mode Mode) (float64, string, error) {
	if mode == ModeShippingOnly {
		if order.ShippingTotal <= 0 {
			return 0, "", ErrNoShippableAmount
		}
		return order.ShippingTotal, order.Currency, nil
	}
	return order.OrderTotal, order.Currency, nil
}
