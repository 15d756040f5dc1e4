package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"argjournal/pkg/domain"
)

// ErrInvalidPopulation is returned by NewJournal for a non-positive founder size.
var ErrInvalidPopulation = errors.New("journal: population size must be positive")

// Journal records nodes and edges generation by generation between
// compactions. It is single-threaded: callers drive it from one simulation
// loop and never share an instance between replicates.
type Journal struct {
	nodes     []domain.Node
	edges     []domain.Edge
	staged    []domain.Edge
	offspring []domain.NodeID

	generation      int64
	nextID          domain.NodeID
	windowStart     domain.NodeID
	parentSize      int64
	generationSize  int64
	lastCompaction  float64
	sinceCompaction int64

	// prepared is set while node times are in backward orientation.
	prepared bool
	flipMax  float64

	strict  bool
	logger  *slog.Logger
	metrics MetricsRecorder
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(j *Journal) {
		if rec != nil {
			j.metrics = rec
		}
	}
}

// WithStrict makes caller-contract violations panic with a *ContractError.
// When disabled a violation is logged and the offending call does nothing.
func WithStrict(strict bool) Option {
	return func(j *Journal) { j.strict = strict }
}

// NewJournal creates a journal holding a founder generation of populationSize
// diploids: 2N nodes with ids 0..2N-1 at time 0.
func NewJournal(populationSize int, opts ...Option) (*Journal, error) {
	if populationSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPopulation, populationSize)
	}
	founders := 2 * int64(populationSize)
	j := &Journal{
		nodes:          make([]domain.Node, 0, founders),
		edges:          make([]domain.Edge, 0, founders),
		staged:         make([]domain.Edge, 0, populationSize),
		offspring:      make([]domain.NodeID, 0, founders),
		generation:     1,
		nextID:         founders,
		parentSize:     int64(populationSize),
		generationSize: founders,
		strict:         true,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:        noopMetrics{},
	}
	for _, opt := range opts {
		opt(j)
	}
	for id := domain.NodeID(0); id < founders; id++ {
		j.nodes = append(j.nodes, domain.NewNode(id, 0, 0))
	}
	j.metrics.JournalSize(len(j.nodes), len(j.edges))
	return j, nil
}

// Nodes returns the recorded nodes. The slice is owned by the journal.
func (j *Journal) Nodes() []domain.Node { return j.nodes }

// Edges returns the committed edges. The slice is owned by the journal.
func (j *Journal) Edges() []domain.Edge { return j.edges }

// StagedEdges returns edges staged for the generation being built.
func (j *Journal) StagedEdges() []domain.Edge { return j.staged }

// OffspringIDs returns the identifiers issued during the generation being built.
func (j *Journal) OffspringIDs() []domain.NodeID { return j.offspring }

// Generation returns the generation currently being built.
func (j *Journal) Generation() int64 { return j.generation }

// NextID returns the identifier the allocator will issue next.
func (j *Journal) NextID() domain.NodeID { return j.nextID }

// ParentWindow returns the first parental identifier and the recorded parental
// generation size. The size is taken at commit as next_id minus the previous
// window start, before the start moves; the founder journal reports N.
func (j *Journal) ParentWindow() (start domain.NodeID, size int64) {
	return j.windowStart, j.parentSize
}

// ParentCount is the number of diploid individuals in the parental
// generation, i.e. half the identifiers issued by the last commit.
func (j *Journal) ParentCount() int64 { return j.generationSize / 2 }

// LastCompactionGeneration is the generation recorded by the last successful compaction.
func (j *Journal) LastCompactionGeneration() float64 { return j.lastCompaction }

// CommitsSinceCompaction counts generations committed since the last
// successful compaction (or construction).
func (j *Journal) CommitsSinceCompaction() int64 { return j.sinceCompaction }

// Prepared reports whether node times are currently flipped for a handoff.
func (j *Journal) Prepared() bool { return j.prepared }

// Strict reports whether contract violations panic.
func (j *Journal) Strict() bool { return j.strict }

// Samples returns the identifiers of the most recently committed generation.
func (j *Journal) Samples() []domain.NodeID {
	out := make([]domain.NodeID, 0, j.generationSize)
	for id := j.windowStart; id < j.windowStart+j.generationSize; id++ {
		out = append(out, id)
	}
	return out
}
