package core

import (
	"fmt"
	"log/slog"
)

const (
	opResolveParentPair = "resolve_parent_pair"
	opCommitGeneration  = "commit_generation"
	opPrepareCompaction = "prepare_for_compaction"
)

// ContractError describes a caller-contract violation. In strict mode it is
// the panic value.
type ContractError struct {
	Op     string
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("journal: %s: contract violation: %s", e.Op, e.Detail)
}

func (j *Journal) violate(op, detail string) {
	j.metrics.ContractViolated(op)
	err := &ContractError{Op: op, Detail: detail}
	if j.strict {
		panic(err)
	}
	j.logger.Warn("journal contract violation ignored",
		slog.String("op", op),
		slog.String("detail", detail),
		slog.Int64("generation", j.generation),
	)
}
