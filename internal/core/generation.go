package core

import (
	"log/slog"

	"argjournal/pkg/domain"
)

// StageEdges records one edge per interval from parent to child. Intervals
// are not validated.
func (j *Journal) StageEdges(intervals []domain.Interval, parent, child domain.NodeID) {
	for _, iv := range intervals {
		j.staged = append(j.staged, domain.NewEdge(iv.Left, iv.Right, parent, child))
	}
}

// CommitGeneration appends a node for every identifier issued this
// generation, moves staged edges into the history, makes the new offspring
// the parental window and advances the generation counter.
func (j *Journal) CommitGeneration() {
	if len(j.offspring) == 0 {
		j.violate(opCommitGeneration, "no offspring allocated this generation")
		return
	}
	if j.prepared {
		// A declined handoff left the history in backward time.
		j.restoreForwardTime()
	}

	t := float64(j.generation)
	for _, id := range j.offspring {
		j.nodes = append(j.nodes, domain.NewNode(id, t, 0))
	}
	j.edges = append(j.edges, j.staged...)
	committedEdges := len(j.staged)

	j.parentSize = j.nextID - j.windowStart
	j.windowStart = j.offspring[0]
	j.generationSize = int64(len(j.offspring))

	j.staged = j.staged[:0]
	j.offspring = j.offspring[:0]
	j.generation++
	j.sinceCompaction++

	j.metrics.GenerationCommitted(int(j.generationSize), committedEdges)
	j.metrics.JournalSize(len(j.nodes), len(j.edges))
	j.logger.Debug("generation committed",
		slog.Int64("generation", j.generation-1),
		slog.Int64("window_start", j.windowStart),
		slog.Int64("parent_size", j.parentSize),
		slog.Int("edges", committedEdges),
	)
}

func (j *Journal) restoreForwardTime() {
	for i := range j.nodes {
		j.nodes[i].Time = j.flipMax - j.nodes[i].Time
	}
	j.prepared = false
	j.flipMax = 0
}
