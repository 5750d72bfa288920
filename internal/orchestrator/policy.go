package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/solver"
)

// DetermineInterval agrees on the connectivity update interval across the
// pool: the minimum of every solver's preferred interval. Ranks without
// solvers contribute solver.NeverUpdate. Every member of c must call it.
func DetermineInterval(ctx context.Context, c comm.Comm, roster []*solver.Instance) (int, error) {
	local := solver.NeverUpdate
	for _, in := range roster {
		local = min(local, in.Solver().OversetUpdateInterval())
	}
	out, err := c.AllreduceInts(ctx, []int{local}, comm.OpMin)
	if err != nil {
		return 0, fmt.Errorf("orchestrator: reduce update interval: %w", err)
	}
	if out[0] < 1 {
		return 0, fmt.Errorf("orchestrator: interval %d: %w", out[0], ErrInvalidInterval)
	}
	return out[0], nil
}

// ShouldUpdate reports whether connectivity is recomputed at step.
func ShouldUpdate(step, interval int) bool {
	return step > 0 && interval > 0 && step%interval == 0
}
