package gateway

import "errors"

// Sentinel errors raised by initiation and reconciliation. Handlers map them
// to HTTP responses; none are retried internally.
var (
	// ErrInvalidOrder means the referenced order could not be loaded.
	ErrInvalidOrder = errors.New("gateway: invalid order")
	// ErrNoShippableAmount means a shipping-only initiation found nothing to collect.
	ErrNoShippableAmount = errors.New("gateway: no shipping cost to process")
	// ErrProvider covers transport or API failures talking to AstimPay,
	// including a create-payment response without a payment URL.
	ErrProvider = errors.New("gateway: provider request failed")
	// ErrVerificationFailed means the provider could not vouch for the
	// presented invoice identifier, or its answer lacked an order reference.
	ErrVerificationFailed = errors.New("gateway: payment verification failed")
	// ErrUnauthenticated means the notification channel key check failed.
	ErrUnauthenticated = errors.New("gateway: invalid webhook signature")
	// ErrMalformedPayload means the notification body was empty or missing
	// required fields.
	ErrMalformedPayload = errors.New("gateway: malformed confirmation payload")
)
