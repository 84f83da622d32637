package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/astimpay-bridge/internal/store"
)

// Config describes one gateway instance. Two instances normally exist, one
// per Mode, sharing the provider credentials but not mutable state.
type Config struct {
	// ID is the route key ("astimpay", "astimpay_shipping").
	ID   string
	Mode Mode

	APIKey string
	APIURL string
	// ExchangeRate converts the store currency to the provider's settlement
	// currency. Forwarded with every session, never applied locally.
	ExchangeRate float64

	// Post-payment statuses for completed payments, selectable per gateway.
	PhysicalProductStatus store.OrderStatus
	DigitalProductStatus  store.OrderStatus

	// PublicBaseURL is the externally reachable base of this service, used
	// to build the callback URL handed to the provider.
	PublicBaseURL string
	// ReturnURL is the storefront page the shopper lands on after payment.
	ReturnURL string
	// CancelURL is where the shopper goes when abandoning the provider flow.
	CancelURL string
}

// Validate checks the fields every gateway operation depends on and fills
// status defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("gateway: id is required")
	}
	if c.Mode != ModeFullOrder && c.Mode != ModeShippingOnly {
		return fmt.Errorf("gateway %s: invalid mode %q", c.ID, c.Mode)
	}
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("gateway %s: api key and api url are required", c.ID)
	}
	if c.PhysicalProductStatus == "" {
		c.PhysicalProductStatus = store.StatusProcessing
	}
	if c.DigitalProductStatus == "" {
		c.DigitalProductStatus = store.StatusCompleted
	}
	return nil
}

// CallbackURL is the single endpoint serving both confirmation channels.
func (c Config) CallbackURL() string {
	return fmt.Sprintf("%s/api/v1/payments/%s/callback", strings.TrimRight(c.PublicBaseURL, "/"), c.ID)
}

func (c Config) returnURL(orderID int64) string {
	base := strings.TrimSpace(c.ReturnURL)
	if base == "" {
		base = strings.TrimRight(c.PublicBaseURL, "/") + "/order-received"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sorder_id=%d", base, sep, orderID)
}

func (c Config) cancelURL(orderID int64) string {
	base := strings.TrimSpace(c.CancelURL)
	if base == "" {
		return c.returnURL(orderID)
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sorder_id=%d", base, sep, orderID)
}
