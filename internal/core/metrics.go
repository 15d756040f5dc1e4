package core

import "time"

// Compaction outcomes reported to MetricsRecorder.
const (
	OutcomeSimplified = "simplified"
	OutcomeDeclined   = "declined"
	OutcomeFailed     = "failed"
	OutcomeEmpty      = "empty"
)

// MetricsRecorder receives journal bookkeeping events. Implementations must be
// cheap; GenerationCommitted runs once per generation.
type MetricsRecorder interface {
	GenerationCommitted(nodes, edges int)
	CompactionObserved(outcome string, nodes, edges int, duration time.Duration)
	ContractViolated(op string)
	JournalSize(nodes, edges int)
}

type noopMetrics struct{}

func (noopMetrics) GenerationCommitted(int, int)                         {}
func (noopMetrics) CompactionObserved(string, int, int, time.Duration) {}
func (noopMetrics) ContractViolated(string)                             {}
func (noopMetrics) JournalSize(int, int)                                {}
