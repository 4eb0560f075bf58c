package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for foreign calls. A nil *Metrics
// records nothing.
type Metrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	OpenSessions prometheus.Gauge
	LoadedImages prometheus.Gauge
}

// NewMetrics creates metrics under namespace and registers them with reg.
// Registering twice with the same registerer panics.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_calls_total",
			Help:      "Total number of calls into module entry points",
		}, []string{"entry_point", "result"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "module_call_duration_seconds",
			Help:      "Duration of calls into module entry points in seconds",
			Buckets:   []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"entry_point"}),
		OpenSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_open_sessions",
			Help:      "Number of sessions opened and not yet closed",
		}),
		LoadedImages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "module_loaded_images",
			Help:      "Number of shared-library images currently mapped",
		}),
	}
}

func (m *Metrics) observeCall(entryPoint string, ok bool, start time.Time) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failure"
	}
	m.CallsTotal.WithLabelValues(entryPoint, result).Inc()
	m.CallDuration.WithLabelValues(entryPoint).Observe(time.Since(start).Seconds())
}

func (m *Metrics) sessionOpened() {
	if m != nil {
		m.OpenSessions.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.OpenSessions.Dec()
	}
}

func (m *Metrics) imageLoaded() {
	if m != nil {
		m.LoadedImages.Inc()
	}
}

func (m *Metrics) imageUnloaded() {
	if m != nil {
		m.LoadedImages.Dec()
	}
}
