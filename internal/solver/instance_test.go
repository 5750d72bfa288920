package solver_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/solver"
	"github.com/dusk-indust/oversetsim/internal/solver/solvertest"
)

// steppingClock advances by one second every time it is read.
type steppingClock struct {
	t time.Time
}

func (c *steppingClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func singleRank(t *testing.T) comm.Comm {
	t.Helper()
	w, err := comm.NewWorld(1)
	require.NoError(t, err)
	return w.Comm(0)
}

func TestInstance_InitTimerAccumulatesAcrossInitHooks(t *testing.T) {
	clk := &steppingClock{}
	fake := &solvertest.Fake{ID: "Nalu-Wind-0", Group: singleRank(t), Unstructured: true}
	in := solver.NewInstance(fake, clk.Now)
	ctx := context.Background()

	require.NoError(t, in.CallInitProlog(ctx, true))
	require.NoError(t, in.CallInitEpilog(ctx))
	require.NoError(t, in.CallPrepareSolverProlog(ctx))
	require.NoError(t, in.CallPrepareSolverEpilog(ctx))

	// Each tick/tock pair spans one clock read: 4 closed intervals.
	assert.Equal(t, 4*time.Second, in.Timers().Duration(solver.TimerInit))
	assert.Equal(t, []string{"InitProlog", "InitEpilog", "PrepareSolverProlog", "PrepareSolverEpilog"}, fake.Calls())
}

func TestInstance_PreTimerFollowsIterationFlag(t *testing.T) {
	clk := &steppingClock{}
	fake := &solvertest.Fake{ID: "AMR-Wind", Group: singleRank(t), AMR: true}
	in := solver.NewInstance(fake, clk.Now)
	ctx := context.Background()

	require.NoError(t, in.CallPreAdvanceStage1(ctx, 0, false))
	require.NoError(t, in.CallPreAdvanceStage2(ctx, 0))
	assert.Equal(t, 2*time.Second, in.Timers().Duration(solver.TimerPre))

	// A second sub-iteration keeps accumulating.
	require.NoError(t, in.CallPreAdvanceStage1(ctx, 1, true))
	assert.Equal(t, 3*time.Second, in.Timers().Duration(solver.TimerPre))

	// A new step resets.
	require.NoError(t, in.CallPreAdvanceStage1(ctx, 0, false))
	assert.Equal(t, time.Second, in.Timers().Duration(solver.TimerPre))
}

func TestInstance_ErrorWrappedWithIdentifierAndHook(t *testing.T) {
	boom := errors.New("linear solver diverged")
	fake := &solvertest.Fake{ID: "Nalu-Wind-1", Group: singleRank(t), FailOn: "AdvanceTimestep", Err: boom}
	in := solver.NewInstance(fake, nil)

	err := in.CallAdvanceTimestep(context.Background(), 0, false)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Nalu-Wind-1")
	assert.Contains(t, err.Error(), "advance timestep")
}

func TestInstance_Close(t *testing.T) {
	fake := &solvertest.Fake{ID: "AMR-Wind", Group: singleRank(t)}
	in := solver.NewInstance(fake, nil)
	require.NoError(t, in.Close())
	assert.True(t, fake.Closed())
}

func TestInstance_ReportTimingsOnGroupRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timings.dat")
	outs := make([]*bytes.Buffer, 4)

	err := comm.Run(context.Background(), 4, func(ctx context.Context, world comm.Comm) error {
		group, err := world.Sub(ctx, "nalu", 2, 2)
		if err != nil || group == nil {
			return err
		}
		clk := &steppingClock{}
		in := solver.NewInstance(&solvertest.Fake{ID: "Nalu-Wind-0", Group: group}, clk.Now)
		if err := in.CallPostAdvance(ctx); err != nil {
			return err
		}
		outs[world.Rank()] = &bytes.Buffer{}
		return in.ReportTimings(ctx, 3, outs[world.Rank()], path)
	})
	require.NoError(t, err)

	assert.Contains(t, outs[2].String(), "Nalu-Wind-0 step 3 --")
	assert.Empty(t, outs[3].String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, len(solver.TimerNames))
	assert.Equal(t, "Nalu-Wind-0::Post 3 1.000000 1.000000 1.000000", lines[4])
}

func TestInstance_ReportMemory(t *testing.T) {
	var out bytes.Buffer
	fake := &solvertest.Fake{ID: "AMR-Wind", Group: singleRank(t)}
	in := solver.NewInstance(fake, nil)
	require.NoError(t, in.ReportMemory(context.Background(), 42, &out))
	assert.Equal(t, "AMR-Wind memory usage (MB) -- min: 42 avg: 42 max: 42 total: 42\n", out.String())
}
