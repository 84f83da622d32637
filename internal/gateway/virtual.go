package gateway

import (
	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// IsVirtual reports whether an order needs no physical fulfilment: every
// line item that still resolves to a product must be virtual or
// downloadable. An order with no resolvable items counts as physical, which
// keeps it on the stricter post-payment status.
func IsVirtual(order *store.Order) bool {
	resolved := false
	for _, item := range order.Items {
		if !item.Resolved() {
			continue
		}
		if !item.IsVirtual && !item.IsDownloadable {
			return false
		}
		resolved = true
	}
	return resolved
}
