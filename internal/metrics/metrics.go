// Package metrics exports journal bookkeeping as Prometheus series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the metric vectors. Every series carries a run label so
// concurrent replicates in one process stay distinguishable.
type Collector struct {
	generations *prometheus.CounterVec
	nodesAdded  *prometheus.CounterVec
	edgesAdded  *prometheus.CounterVec
	batchEdges  *prometheus.HistogramVec
	compactions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	violations  *prometheus.CounterVec
	nodes       *prometheus.GaugeVec
	edges       *prometheus.GaugeVec
}

// NewCollector registers the vectors with reg. A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "argjournal_generations_committed_total",
			Help: "Generations committed to the journal",
		}, []string{"run"}),
		nodesAdded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "argjournal_nodes_committed_total",
			Help: "Nodes appended by generation commits",
		}, []string{"run"}),
		edgesAdded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "argjournal_edges_committed_total",
			Help: "Edges appended by generation commits",
		}, []string{"run"}),
		compactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "argjournal_compactions_total",
			Help: "Compaction attempts by outcome",
		}, []string{"run", "outcome"}),
		batchEdges: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argjournal_compaction_batch_edges",
			Help:    "Edges handed to the simplifier per compaction",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"run"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argjournal_compaction_duration_seconds",
			Help:    "Time spent in the simplifier per compaction",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"run"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "argjournal_contract_violations_total",
			Help: "Journal calls rejected as contract violations",
		}, []string{"run", "op"}),
		nodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "argjournal_journal_nodes",
			Help: "Nodes currently held by the journal",
		}, []string{"run"}),
		edges: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "argjournal_journal_edges",
			Help: "Edges currently held by the journal",
		}, []string{"run"}),
	}
}

// ForRun returns a recorder bound to one run label.
func (c *Collector) ForRun(run string) *Recorder {
	return &Recorder{c: c, run: run}
}

// Recorder satisfies the journal's metrics hook for a single run.
type Recorder struct {
	c   *Collector
	run string
}

// GenerationCommitted counts a commit and the records it appended.
func (r *Recorder) GenerationCommitted(nodes, edges int) {
	r.c.generations.WithLabelValues(r.run).Inc()
	r.c.nodesAdded.WithLabelValues(r.run).Add(float64(nodes))
	r.c.edgesAdded.WithLabelValues(r.run).Add(float64(edges))
}

// CompactionObserved counts the outcome and records the simplifier duration.
func (r *Recorder) CompactionObserved(outcome string, _, edges int, d time.Duration) {
	r.c.compactions.WithLabelValues(r.run, outcome).Inc()
	r.c.duration.WithLabelValues(r.run).Observe(d.Seconds())
	r.c.batchEdges.WithLabelValues(r.run).Observe(float64(edges))
}

// ContractViolated counts a rejected call.
func (r *Recorder) ContractViolated(op string) {
	r.c.violations.WithLabelValues(r.run, op).Inc()
}

// JournalSize sets the size gauges.
func (r *Recorder) JournalSize(nodes, edges int) {
	r.c.nodes.WithLabelValues(r.run).Set(float64(nodes))
	r.c.edges.WithLabelValues(r.run).Set(float64(edges))
}
