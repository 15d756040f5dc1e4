package sim

import (
	"errors"
	"fmt"
	"math"

	"argjournal/pkg/domain"
)

// ErrInconsistentBatch is wrapped by every CheckBatch failure.
var ErrInconsistentBatch = errors.New("inconsistent batch")

// CheckBatch is a brute-force post-hoc check of a handoff produced by Run
// (times already flipped to backward). It verifies that
//   - every generation holds 2N contiguous identifiers,
//   - every interval satisfies 0 <= left < right <= 1 and each child's
//     intervals sum to the whole genome,
//   - every parent lies in the generation before its child, or, for the
//     oldest generation after a truncation, below 2N,
//   - the samples are exactly the youngest generation.
func CheckBatch(b domain.Batch, populationSize int) error {
	width := 2 * populationSize
	byID := make(map[domain.NodeID]domain.Node, len(b.Nodes))
	byTime := make(map[float64][]domain.NodeID)
	oldest := math.Inf(-1)
	for _, n := range b.Nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: node %d recorded twice", ErrInconsistentBatch, n.ID)
		}
		byID[n.ID] = n
		byTime[n.Time] = append(byTime[n.Time], n.ID)
		oldest = math.Max(oldest, n.Time)
	}
	for t, ids := range byTime {
		if len(ids) != width {
			return fmt.Errorf("%w: time %g holds %d nodes, want %d", ErrInconsistentBatch, t, len(ids), width)
		}
		lo := ids[0]
		for _, id := range ids {
			lo = min(lo, id)
		}
		for _, id := range ids {
			if id < lo || id >= lo+domain.NodeID(width) {
				return fmt.Errorf("%w: node %d outside id range [%d,%d) at time %g", ErrInconsistentBatch, id, lo, lo+domain.NodeID(width), t)
			}
		}
	}

	coverage := make(map[domain.NodeID]float64)
	for _, e := range b.Edges {
		if !(e.Left >= 0 && e.Left < e.Right && e.Right <= 1) {
			return fmt.Errorf("%w: bad interval [%g,%g) on edge %d->%d", ErrInconsistentBatch, e.Left, e.Right, e.Parent, e.Child)
		}
		child, ok := byID[e.Child]
		if !ok {
			return fmt.Errorf("%w: child %d has no node", ErrInconsistentBatch, e.Child)
		}
		coverage[e.Child] += e.Span().Length()
		parent, ok := byID[e.Parent]
		switch {
		case ok && parent.Time != child.Time+1:
			return fmt.Errorf("%w: parent %d at time %g, child %d at time %g", ErrInconsistentBatch, e.Parent, parent.Time, e.Child, child.Time)
		case !ok && (child.Time != oldest || e.Parent < 0 || e.Parent >= domain.NodeID(width)):
			return fmt.Errorf("%w: parent %d of child %d is not in the batch", ErrInconsistentBatch, e.Parent, e.Child)
		}
	}
	for child, total := range coverage {
		if math.Abs(total-1) > 1e-9 {
			return fmt.Errorf("%w: child %d inherits %g of the genome", ErrInconsistentBatch, child, total)
		}
	}

	if len(b.Samples) != width {
		return fmt.Errorf("%w: %d samples, want %d", ErrInconsistentBatch, len(b.Samples), width)
	}
	for _, id := range b.Samples {
		n, ok := byID[id]
		if !ok || n.Time != 0 {
			return fmt.Errorf("%w: sample %d is not in the youngest generation", ErrInconsistentBatch, id)
		}
	}
	return nil
}
