package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/orchestrator"
	"github.com/dusk-indust/oversetsim/internal/solver"
	"github.com/dusk-indust/oversetsim/internal/solver/solvertest"
)

func TestShouldUpdate(t *testing.T) {
	tests := []struct {
		step, interval int
		want           bool
	}{
		{0, 1, false},
		{0, 3, false},
		{1, 1, true},
		{3, 3, true},
		{4, 3, false},
		{9, 3, true},
		{5, solver.NeverUpdate, false},
		{3, 0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, orchestrator.ShouldUpdate(tt.step, tt.interval), "step %d interval %d", tt.step, tt.interval)
	}
}

func TestDetermineInterval_MinimumOnEveryRank(t *testing.T) {
	// Rank 0 owns two solvers, rank 1 one, rank 2 none.
	intervals := map[int][]int{0: {7, 12}, 1: {4}}
	got := make([]int, 3)

	err := comm.Run(context.Background(), 3, func(ctx context.Context, c comm.Comm) error {
		var roster []*solver.Instance
		for _, iv := range intervals[c.Rank()] {
			roster = append(roster, solver.NewInstance(&solvertest.Fake{ID: "s", Interval: iv}, nil))
		}
		interval, err := orchestrator.DetermineInterval(ctx, c, roster)
		got[c.Rank()] = interval
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 4}, got)
}

func TestDetermineInterval_NoSolversAnywhere(t *testing.T) {
	w, err := comm.NewWorld(1)
	require.NoError(t, err)
	interval, err := orchestrator.DetermineInterval(context.Background(), w.Comm(0), nil)
	require.NoError(t, err)
	assert.Equal(t, solver.NeverUpdate, interval)
}

func TestDetermineInterval_RejectsNonPositive(t *testing.T) {
	w, err := comm.NewWorld(1)
	require.NoError(t, err)
	roster := []*solver.Instance{solver.NewInstance(&solvertest.Fake{ID: "s", Interval: -1}, nil)}
	_, err = orchestrator.DetermineInterval(context.Background(), w.Comm(0), roster)
	require.ErrorIs(t, err, orchestrator.ErrInvalidInterval)
}
