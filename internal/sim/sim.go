// Package sim drives a neutral, constant-size Wright-Fisher population of
// diploids through a core.Journal.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"argjournal/internal/core"
	"argjournal/pkg/domain"
)

// Params controls one replicate.
type Params struct {
	Generations       int64
	RecombinationRate float64 // mean crossovers per transmitted genome
	Seed              uint64
	// Check runs CheckBatch on every handoff before the simplifier sees it.
	Check  bool
	Logger *slog.Logger
}

// Summary reports what a replicate did.
type Summary struct {
	Generations   int64         `json:"generations"`
	Compactions   int           `json:"compactions"`
	Simplified    int           `json:"simplified"`
	NodesRecorded int64         `json:"nodes_recorded"`
	EdgesRecorded int64         `json:"edges_recorded"`
	NextID        domain.NodeID `json:"next_id"`
	Elapsed       time.Duration `json:"elapsed"`
}

// ErrInvalidParams is returned for a negative generation count or rate.
var ErrInvalidParams = errors.New("invalid simulation parameters")

type sampler struct {
	position  distuv.Uniform
	mendel    distuv.Bernoulli
	crossover distuv.Poisson
	point     distuv.Uniform
	rate      float64
}

func newSampler(parents int64, p Params) *sampler {
	src := rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)
	s := &sampler{
		position: distuv.Uniform{Min: 0, Max: float64(parents), Src: src},
		mendel:   distuv.Bernoulli{P: 0.5, Src: src},
		point:    distuv.Uniform{Min: 0, Max: 1, Src: src},
		rate:     p.RecombinationRate,
	}
	if p.RecombinationRate > 0 {
		s.crossover = distuv.Poisson{Lambda: p.RecombinationRate, Src: src}
	}
	return s
}

func (s *sampler) parent(limit int64) uint32 {
	pos := int64(s.position.Rand())
	if pos >= limit {
		pos = limit - 1
	}
	return uint32(pos)
}

// breakpoints returns sorted, distinct positions strictly inside (0, 1).
func (s *sampler) breakpoints() []float64 {
	if s.rate <= 0 {
		return nil
	}
	n := int(s.crossover.Rand())
	if n == 0 {
		return nil
	}
	pts := make([]float64, 0, n)
	for len(pts) < n {
		x := s.point.Rand()
		if x == 0 {
			continue
		}
		pts = append(pts, x)
	}
	sort.Float64s(pts)
	out := pts[:1]
	for _, x := range pts[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

// transmit splits [0,1) at bps, alternating between the two parental copies
// starting with the first.
func transmit(bps []float64) (first, second []domain.Interval) {
	left := 0.0
	for i, bp := range append(bps, 1) {
		iv := domain.Interval{Left: left, Right: bp}
		if i%2 == 0 {
			first = append(first, iv)
		} else {
			second = append(second, iv)
		}
		left = bp
	}
	return first, second
}

// Run simulates p.Generations generations into j, consulting policy after
// every commit and compacting whatever remains at the end.
func Run(ctx context.Context, p Params, j *core.Journal, policy core.CompactionPolicy, s domain.Simplifier) (Summary, error) {
	if p.Generations < 0 || p.RecombinationRate < 0 {
		return Summary{}, fmt.Errorf("%w: generations %d, rate %g", ErrInvalidParams, p.Generations, p.RecombinationRate)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy == nil {
		policy = core.NeverPolicy{}
	}
	n := j.ParentCount()
	if p.Check {
		s = checked(s, int(n))
	}
	var sum Summary
	compact := func(res domain.CompactionResult) {
		sum.Compactions++
		if res.Simplified {
			sum.Simplified++
		}
	}

	started := time.Now()
	rng := newSampler(n, p)
	for g := int64(0); g < p.Generations; g++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		parents := j.ParentCount()
		for i := int64(0); i < n; i++ {
			a, b := j.AllocateOffspringPair()
			for _, child := range []domain.NodeID{a, b} {
				p1, p2 := j.ResolveParentPair(rng.parent(parents), rng.mendel.Rand() == 1)
				first, second := transmit(rng.breakpoints())
				j.StageEdges(first, p1, child)
				j.StageEdges(second, p2, child)
				sum.EdgesRecorded += int64(len(first) + len(second))
			}
		}
		j.CommitGeneration()
		sum.Generations++
		sum.NodesRecorded += 2 * n

		res, ran, err := core.RunPolicy(ctx, j, policy, s)
		if err != nil {
			return sum, fmt.Errorf("generation %d: %w", j.Generation()-1, err)
		}
		if ran {
			compact(res)
		}
	}
	if len(j.Nodes()) > 0 {
		res, err := j.Compact(ctx, s)
		if err != nil {
			return sum, fmt.Errorf("final compaction: %w", err)
		}
		compact(res)
	}
	sum.NextID = j.NextID()
	sum.Elapsed = time.Since(started)
	logger.Info("replicate finished",
		slog.Int64("generations", sum.Generations),
		slog.Int("compactions", sum.Compactions),
		slog.Int64("edges", sum.EdgesRecorded),
		slog.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}

func checked(next domain.Simplifier, populationSize int) domain.Simplifier {
	return domain.SimplifierFunc(func(ctx context.Context, b domain.Batch) (domain.CompactionResult, error) {
		if err := CheckBatch(b, populationSize); err != nil {
			return domain.CompactionResult{}, err
		}
		return next.Simplify(ctx, b)
	})
}
