package metrics

import (
	"expvar"
	"fmt"
	"maps"
	"sync"
	"time"
)

var (
	expvarMu  sync.Mutex
	expvarSeq uint64
)

// ExpvarRecorder publishes per-run journal totals through expvar, served at
// /debug/vars next to the Prometheus endpoint.
type ExpvarRecorder struct {
	name string

	mu          sync.Mutex
	generations int64
	nodesAdded  int64
	edgesAdded  int64
	outcomes    map[string]int64
	violations  map[string]int64
	simplifyMS  float64
	nodes       int
	edges       int
}

// ExpvarSnapshot is the JSON document published for a recorder.
type ExpvarSnapshot struct {
	Generations  int64            `json:"generations_total"`
	NodesAdded   int64            `json:"nodes_committed_total"`
	EdgesAdded   int64            `json:"edges_committed_total"`
	Compactions  map[string]int64 `json:"compactions_total"`
	Violations   map[string]int64 `json:"contract_violations_total"`
	SimplifyMS   float64          `json:"simplify_ms_total"`
	JournalNodes int              `json:"journal_nodes"`
	JournalEdges int              `json:"journal_edges"`
	RecordedAt   time.Time        `json:"recorded_at"`
}

// NewExpvarRecorder publishes a recorder under name. Expvar names are
// process-global, so an empty or already published name gets a numeric suffix.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		name = "argjournal_run"
	}
	r := &ExpvarRecorder{
		outcomes:   make(map[string]int64),
		violations: make(map[string]int64),
	}
	expvarMu.Lock()
	defer expvarMu.Unlock()
	base := name
	for expvar.Get(name) != nil {
		expvarSeq++
		name = fmt.Sprintf("%s_%d", base, expvarSeq)
	}
	r.name = name
	expvar.Publish(name, expvar.Func(func() any { return r.Snapshot() }))
	return r
}

// Name returns the expvar key.
func (r *ExpvarRecorder) Name() string { return r.name }

// Snapshot copies the current totals.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExpvarSnapshot{
		Generations:  r.generations,
		NodesAdded:   r.nodesAdded,
		EdgesAdded:   r.edgesAdded,
		Compactions:  maps.Clone(r.outcomes),
		Violations:   maps.Clone(r.violations),
		SimplifyMS:   r.simplifyMS,
		JournalNodes: r.nodes,
		JournalEdges: r.edges,
		RecordedAt:   time.Now().UTC(),
	}
}

func (r *ExpvarRecorder) GenerationCommitted(nodes, edges int) {
	r.mu.Lock()
	r.generations++
	r.nodesAdded += int64(nodes)
	r.edgesAdded += int64(edges)
	r.mu.Unlock()
}

func (r *ExpvarRecorder) CompactionObserved(outcome string, _, _ int, d time.Duration) {
	r.mu.Lock()
	r.outcomes[outcome]++
	r.simplifyMS += float64(d) / float64(time.Millisecond)
	r.mu.Unlock()
}

func (r *ExpvarRecorder) ContractViolated(op string) {
	r.mu.Lock()
	r.violations[op]++
	r.mu.Unlock()
}

func (r *ExpvarRecorder) JournalSize(nodes, edges int) {
	r.mu.Lock()
	r.nodes, r.edges = nodes, edges
	r.mu.Unlock()
}
