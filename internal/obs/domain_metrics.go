package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// FunctionRunsTotal counts function invocations by handle and outcome.
	FunctionRunsTotal *prometheus.CounterVec
	// FunctionRunDuration records successful invocation latency in milliseconds.
	FunctionRunDuration *prometheus.HistogramVec
	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers function-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		FunctionRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "function_runs_total",
			Help:      "Count of function invocations by outcome.",
		}, []string{"function", "outcome"})
		FunctionRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_run_duration_ms",
			Help:      "Latency of successful function invocations in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"function"})
		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Number of requests rejected by the rate limiter.",
		})

		mustRegisterCollector(reg, FunctionRunsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FunctionRunsTotal = v
			}
		})
		mustRegisterCollector(reg, FunctionRunDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				FunctionRunDuration = v
			}
		})
		mustRegisterCollector(reg, RateLimitRejectedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateLimitRejectedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
