package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/phrazzld/handoff/internal/events"
	"github.com/phrazzld/handoff/internal/task"
)

const namespace = "handoff"

// Metrics holds the Prometheus collectors for the hand-off core.
// Counters for produced, processed and failed tasks are fed by events; queue and
// gate figures are read from their snapshots at scrape time.
type Metrics struct {
	registry *prometheus.Registry

	TasksProduced  prometheus.Counter
	TasksProcessed prometheus.Counter
	TasksFailed    prometheus.Counter
	ProcessedBatch prometheus.Histogram

	lastCycle uint64
	batchSize int
}

// New creates the collectors and registers them, together with the queue depth
// and gate notify figures, on a fresh registry.
func New(queue *task.TaskQueue, gate *task.SignalGate) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TasksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_produced_total",
			Help:      "Total number of tasks pushed by the producer",
		}),
		TasksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Total number of tasks processed successfully by the consumer",
		}),
		TasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks whose processing failed",
		}),
		ProcessedBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processed_batch_size",
			Help:      "Number of tasks processed per producer cycle",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
	}

	m.registry.MustRegister(
		m.TasksProduced,
		m.TasksProcessed,
		m.TasksFailed,
		m.ProcessedBatch,
		collectors.NewGoCollector(),
	)

	if queue != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of tasks waiting in the queue",
			}, func() float64 { return float64(queue.Len()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_drains_total",
				Help:      "Number of non-empty drains performed by the consumer",
			}, func() float64 { return float64(queue.Stats().Drains) }),
		)
	}

	if gate != nil {
		m.registry.MustRegister(newGateCollector(gate))
	}

	return m
}

// Registry returns the registry holding every handoff collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HandleEvent implements events.EventHandler. It is called from the emitting
// loop's goroutine; processed events arrive from the consumer only.
func (m *Metrics) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	switch event.Type {
	case events.TypeTaskProduced:
		m.TasksProduced.Inc()
	case events.TypeTaskProcessed:
		m.TasksProcessed.Inc()
		m.observeCycle(event.Cycle)
	case events.TypeTaskFailed:
		m.TasksFailed.Inc()
		m.observeCycle(event.Cycle)
	}
	return nil
}

// observeCycle accumulates consecutive events of one cycle into a single histogram
// observation, flushed when the next cycle starts.
func (m *Metrics) observeCycle(cycle uint64) {
	if cycle != m.lastCycle && m.batchSize > 0 {
		m.ProcessedBatch.Observe(float64(m.batchSize))
		m.batchSize = 0
	}
	m.lastCycle = cycle
	m.batchSize++
}

// gateCollector exports the signal gate's notify counters with a result label.
type gateCollector struct {
	gate     *task.SignalGate
	notifies *prometheus.Desc
	waits    *prometheus.Desc
}

func newGateCollector(gate *task.SignalGate) *gateCollector {
	return &gateCollector{
		gate: gate,
		notifies: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gate", "notifies_total"),
			"Wake notifications sent to the consumer, by outcome",
			[]string{"result"}, nil,
		),
		waits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "gate", "waits_total"),
			"Number of times the consumer suspended on an empty queue",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *gateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.notifies
	ch <- c.waits
}

// Collect implements prometheus.Collector.
func (c *gateCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.gate.Stats()
	ch <- prometheus.MustNewConstMetric(c.notifies, prometheus.CounterValue, float64(stats.Delivered), "delivered")
	ch <- prometheus.MustNewConstMetric(c.notifies, prometheus.CounterValue, float64(stats.Coalesced), "coalesced")
	ch <- prometheus.MustNewConstMetric(c.notifies, prometheus.CounterValue, float64(stats.Dropped), "dropped")
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(stats.Waits))
}
