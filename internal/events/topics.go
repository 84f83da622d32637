package events

// Topic constants for domain events emitted by the payment bridge.
const (
	TopicPaymentInitiated = "payment.initiated"
	TopicOrderPaid        = "order.paid"
	TopicPaymentOnHold    = "payment.on_hold"
)

// DefaultTopics returns the canonical list of emitted topics. Emit rejects
// anything outside this list.
func DefaultTopics() []string {
	return []string{
		TopicPaymentInitiated,
		TopicOrderPaid,
		TopicPaymentOnHold,
	}
}

func knownTopic(topic string) bool {
	for _, known := range DefaultTopics() {
		if topic == known {
			return true
		}
	}
	return false
}
