package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the service's prometheus collectors.
type Metrics struct {
	DealsReceived   prometheus.Counter
	Resorts         *prometheus.CounterVec
	ScrollDiscarded prometheus.Counter
	SortDuration    prometheus.Histogram
	WindowRows      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DealsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dealsviewer",
			Name:      "deals_received_total",
			Help:      "Deals appended to the accumulator.",
		}),
		Resorts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealsviewer",
			Name:      "resorts_total",
			Help:      "Completed resorts by outcome.",
		}, []string{"outcome"}),
		ScrollDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dealsviewer",
			Name:      "scroll_requests_discarded_total",
			Help:      "Scroll requests issued against a stale or already grown page.",
		}),
		SortDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dealsviewer",
			Name:      "sort_duration_seconds",
			Help:      "Time spent sorting the accumulated deals.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		WindowRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dealsviewer",
			Name:      "window_rows",
			Help:      "Rows in the published window.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.DealsReceived, m.Resorts, m.ScrollDiscarded, m.SortDuration, m.WindowRows)
	}
	return m
}

const (
	outcomePublished = "published"
	outcomeDiscarded = "discarded"
)
