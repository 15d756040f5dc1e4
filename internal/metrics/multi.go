package metrics

import "time"

// Sink receives journal bookkeeping events.
type Sink interface {
	GenerationCommitted(nodes, edges int)
	CompactionObserved(outcome string, nodes, edges int, d time.Duration)
	ContractViolated(op string)
	JournalSize(nodes, edges int)
}

// Multi fans journal events out to several sinks.
type Multi []Sink

// Tee combines sinks, skipping nils.
func Tee(sinks ...Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m Multi) GenerationCommitted(nodes, edges int) {
	for _, s := range m {
		s.GenerationCommitted(nodes, edges)
	}
}

func (m Multi) CompactionObserved(outcome string, nodes, edges int, d time.Duration) {
	for _, s := range m {
		s.CompactionObserved(outcome, nodes, edges, d)
	}
}

func (m Multi) ContractViolated(op string) {
	for _, s := range m {
		s.ContractViolated(op)
	}
}

func (m Multi) JournalSize(nodes, edges int) {
	for _, s := range m {
		s.JournalSize(nodes, edges)
	}
}
