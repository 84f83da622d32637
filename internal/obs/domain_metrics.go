package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentInitTotal counts payment initiation outcomes per gateway.
	PaymentInitTotal *prometheus.CounterVec
	// PaymentCallbackTotal counts inbound confirmation processing outcomes
	// per gateway and channel.
	PaymentCallbackTotal *prometheus.CounterVec
	// ProviderRequestTotal counts outbound provider API calls by operation.
	ProviderRequestTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the payment-domain
// collectors. Safe to call more than once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentInitTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_init_total",
			Help:      "Count of payment initiation outcomes.",
		}, []string{"gateway", "result"}))
		PaymentCallbackTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callback_total",
			Help:      "Count of processed payment confirmations by channel and outcome.",
		}, []string{"gateway", "channel", "result"}))
		ProviderRequestTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_request_total",
			Help:      "Count of outbound provider API calls by operation and outcome.",
		}, []string{"operation", "result"}))
	})
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if existing, ok := register(reg, c).(*prometheus.CounterVec); ok {
		return existing
	}
	return c
}
