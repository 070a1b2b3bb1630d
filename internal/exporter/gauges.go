// Package exporter publishes the latest benchmark summary as Prometheus gauges.
package exporter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jeamon/book-catalog/internal/benchmark"
)

// Gauges holds the five benchmark gauges.
type Gauges struct {
	RequestsPerSec   prometheus.Gauge
	TimePerRequest   prometheus.Gauge
	TransferRate     prometheus.Gauge
	FailedRequests   prometheus.Gauge
	CompleteRequests prometheus.Gauge
}

// NewGauges creates the gauges and registers them on reg.
func NewGauges(reg prometheus.Registerer) *Gauges {
	factory := promauto.With(reg)
	return &Gauges{
		RequestsPerSec: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ab_requests_per_sec",
			Help: "Requests per second from AB",
		}),
		TimePerRequest: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ab_time_per_request_ms",
			Help: "Average time per request (ms)",
		}),
		TransferRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ab_transfer_rate_kb",
			Help: "Transfer rate (KB/s)",
		}),
		FailedRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ab_failed_requests",
			Help: "Number of failed requests",
		}),
		CompleteRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ab_complete_requests",
			Help: "Number of completed requests",
		}),
	}
}

// Set overwrites every gauge from s. Absent metrics are set to 0.
func (g *Gauges) Set(s benchmark.Summary) {
	g.RequestsPerSec.Set(benchmark.Value(s.RequestsPerSec))
	g.TimePerRequest.Set(benchmark.Value(s.TimePerRequest))
	g.TransferRate.Set(benchmark.Value(s.TransferRate))
	g.FailedRequests.Set(benchmark.Value(s.FailedRequests))
	g.CompleteRequests.Set(benchmark.Value(s.CompleteRequests))
}
