package pool

import "github.com/prometheus/client_golang/prometheus"

// PromMetrics implements Metrics and exports Prometheus gauges/counters.
// Constructor shape matches metrics/prom.New: accept a Registerer (nil =>
// the default one), a namespace and subsystem, and optional const labels.
type PromMetrics struct {
	size    prometheus.Gauge
	inUse   prometheus.Gauge
	timeout prometheus.Counter
}

// NewPromMetrics constructs a Prometheus metrics adapter for a Pool.
func NewPromMetrics(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *PromMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PromMetrics{
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "pool_size",
			Help: "Fixed number of sessions held open by the pool.", ConstLabels: constLabels,
		}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "pool_in_use",
			Help: "Number of sessions currently checked out.", ConstLabels: constLabels,
		}),
		timeout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "pool_acquire_timeouts_total",
			Help: "Acquire calls that gave up waiting for a session.", ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(m.size, m.inUse, m.timeout)
	return m
}

func (m *PromMetrics) Size(n int)  { m.size.Set(float64(n)) }
func (m *PromMetrics) InUse(n int) { m.inUse.Set(float64(n)) }
func (m *PromMetrics) Timeout()    { m.timeout.Inc() }

var _ Metrics = (*PromMetrics)(nil)
