package pvpc

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	fetchTotal   *prometheus.CounterVec
	fetchSeconds *prometheus.HistogramVec
)

func registerMetrics() {
	registerOnce.Do(func() {
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pvpc_fetch_total",
				Help: "Total price-series fetches by provider and result",
			},
			[]string{"provider", "result"},
		)
		fetchSeconds = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pvpc_fetch_seconds",
				Help:    "Price-series fetch latency by provider",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		)
		prometheus.MustRegister(fetchTotal, fetchSeconds)
	})
}

func observeFetch(provider string, ok bool, d time.Duration) {
	registerMetrics()
	result := resultSuccess
	if !ok {
		result = resultError
	}
	fetchTotal.WithLabelValues(provider, result).Inc()
	fetchSeconds.WithLabelValues(provider).Observe(d.Seconds())
}
