package billing

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	computeTotal   *prometheus.CounterVec
	computeSeconds prometheus.Histogram
)

func registerMetrics() {
	registerOnce.Do(func() {
		computeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_compute_total",
				Help: "Total invoice computations by tariff and result",
			},
			[]string{"tariff", "result"},
		)
		computeSeconds = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_compute_seconds",
				Help:    "Invoice computation latency",
				Buckets: prometheus.DefBuckets,
			},
		)
		prometheus.MustRegister(computeTotal, computeSeconds)
	})
}

func observeCompute(tariffCode string, ok bool, d time.Duration) {
	registerMetrics()
	result := "success"
	if !ok {
		result = "error"
	}
	computeTotal.WithLabelValues(tariffCode, result).Inc()
	computeSeconds.Observe(d.Seconds())
}
