package core

import (
	"context"

	"argjournal/pkg/domain"
)

// CompactionPolicy decides when the simulation loop hands the history to the
// simplifier.
type CompactionPolicy interface {
	ShouldCompact(j *Journal) bool
}

// IntervalPolicy compacts every Every committed generations. A non-positive
// interval never compacts.
type IntervalPolicy struct {
	Every int64
}

// ShouldCompact implements CompactionPolicy.
func (p IntervalPolicy) ShouldCompact(j *Journal) bool {
	if p.Every <= 0 || len(j.nodes) == 0 {
		return false
	}
	return j.sinceCompaction >= p.Every
}

// NeverPolicy never compacts.
type NeverPolicy struct{}

// ShouldCompact implements CompactionPolicy.
func (NeverPolicy) ShouldCompact(*Journal) bool { return false }

// RunPolicy is the loop-side entry point: it asks policy and compacts j with s
// when due.
func RunPolicy(ctx context.Context, j *Journal, policy CompactionPolicy, s domain.Simplifier) (domain.CompactionResult, bool, error) {
	return j.MaybeCompact(ctx, policy, s)
}
