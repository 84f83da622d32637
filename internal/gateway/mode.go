package gateway

import (
	"fmt"
	"strings"
)

// Mode selects which amount a gateway instance collects for an order. The
// full-order and shipping-only gateways share one engine parameterised by
// this value.
type Mode string

const (
	ModeFullOrder    Mode = "full_order"
	ModeShippingOnly Mode = "shipping_only"
)

// ParseMode converts a configured mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "full_order", "full":
		return ModeFullOrder, nil
	case "shipping_only", "shipping":
		return ModeShippingOnly, nil
	default:
		return "", fmt.Errorf("gateway: unknown payment mode %q", value)
	}
}

func (m Mode) label() string {
	if m == ModeShippingOnly {
		return "AstimPay Shipping Only"
	}
	return "AstimPay"
}
