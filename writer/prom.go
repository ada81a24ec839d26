package writer

import "github.com/prometheus/client_golang/prometheus"

// PromMetrics implements Metrics with Prometheus collectors. Constructor
// shape matches pool.NewPromMetrics and metrics/prom.New.
type PromMetrics struct {
	depth   prometheus.Gauge
	dropped prometheus.Counter
}

// NewPromMetrics constructs a Prometheus metrics adapter for a Writer.
func NewPromMetrics(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *PromMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PromMetrics{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "writer_queue_depth",
			Help: "Number of write-behind tasks currently queued.", ConstLabels: constLabels,
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "writer_tasks_dropped_total",
			Help: "Write-behind tasks discarded after a store failure.", ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(m.depth, m.dropped)
	return m
}

func (m *PromMetrics) QueueDepth(n int) { m.depth.Set(float64(n)) }
func (m *PromMetrics) Dropped()         { m.dropped.Inc() }

var _ Metrics = (*PromMetrics)(nil)
