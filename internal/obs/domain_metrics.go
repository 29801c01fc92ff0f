package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CalculationTotal counts pricing pipeline runs by outcome.
	CalculationTotal *prometheus.CounterVec
	// CalculationDuration records pipeline latency in milliseconds.
	CalculationDuration prometheus.Histogram
	// CartLockContention counts mutations rejected because the cart lock was held.
	CartLockContention prometheus.Counter
	// PromotionsAppliedTotal counts applied promotion discounts.
	PromotionsAppliedTotal *prometheus.CounterVec
	// RedemptionCommitsTotal counts redemption ledger commits by outcome.
	RedemptionCommitsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CalculationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_calculation_total",
			Help:      "Count of cart pricing pipeline runs by outcome.",
		}, []string{"result"})
		CalculationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_calculation_duration_ms",
			Help:      "Latency of cart pricing pipeline runs in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		})
		CartLockContention = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_lock_contention_total",
			Help:      "Number of cart mutations rejected because the lock was held.",
		})
		PromotionsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_applied_total",
			Help:      "Count of promotion discounts applied to carts.",
		}, []string{"promotion"})
		RedemptionCommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_redemption_commits_total",
			Help:      "Count of redemption ledger commits by outcome.",
		}, []string{"result"})

		registerOrReuse(reg, CalculationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CalculationTotal = v
			}
		})
		registerOrReuse(reg, CalculationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CalculationDuration = v
			}
		})
		registerOrReuse(reg, CartLockContention, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartLockContention = v
			}
		})
		registerOrReuse(reg, PromotionsAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionsAppliedTotal = v
			}
		})
		registerOrReuse(reg, RedemptionCommitsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RedemptionCommitsTotal = v
			}
		})
	})
}
