package solver

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/oversetsim/internal/telemetry"
)

// Per-instance timer names, in reporting order.
const (
	TimerInit  = "Init"
	TimerPre   = "Pre"
	TimerConn  = "Conn"
	TimerSolve = "Solve"
	TimerPost  = "Post"
)

// TimerNames lists the per-instance timers in reporting order.
var TimerNames = []string{TimerInit, TimerPre, TimerConn, TimerSolve, TimerPost}

// Instance is a registered solver together with its timers. Each Call method
// times one hook and wraps its error with the solver identifier.
type Instance struct {
	s      Solver
	timers *telemetry.Timers
}

// NewInstance wraps s. A nil clock uses the wall clock.
func NewInstance(s Solver, clock telemetry.Clock) *Instance {
	return &Instance{
		s:      s,
		timers: telemetry.NewTimers(clock, TimerNames...),
	}
}

// Solver returns the wrapped engine.
func (in *Instance) Solver() Solver { return in.s }

// Timers returns the instance's timer set.
func (in *Instance) Timers() *telemetry.Timers { return in.timers }

// Identifier is shorthand for Solver().Identifier().
func (in *Instance) Identifier() string { return in.s.Identifier() }

func (in *Instance) call(timer string, incremental bool, hook string, fn func() error) error {
	if err := in.timers.Time(timer, incremental, fn); err != nil {
		return fmt.Errorf("%s: %s: %w", in.s.Identifier(), hook, err)
	}
	return nil
}

func (in *Instance) CallInitProlog(ctx context.Context, multiSolverMode bool) error {
	return in.call(TimerInit, false, "init prolog", func() error {
		return in.s.InitProlog(ctx, multiSolverMode)
	})
}

func (in *Instance) CallInitEpilog(ctx context.Context) error {
	return in.call(TimerInit, true, "init epilog", func() error {
		return in.s.InitEpilog(ctx)
	})
}

func (in *Instance) CallPrepareSolverProlog(ctx context.Context) error {
	return in.call(TimerInit, true, "prepare solver prolog", func() error {
		return in.s.PrepareSolverProlog(ctx)
	})
}

func (in *Instance) CallPrepareSolverEpilog(ctx context.Context) error {
	return in.call(TimerInit, true, "prepare solver epilog", func() error {
		return in.s.PrepareSolverEpilog(ctx)
	})
}

func (in *Instance) CallPreAdvanceStage1(ctx context.Context, iter int, incremental bool) error {
	return in.call(TimerPre, incremental, "pre advance stage 1", func() error {
		return in.s.PreAdvanceStage1(ctx, iter)
	})
}

func (in *Instance) CallPreAdvanceStage2(ctx context.Context, iter int) error {
	return in.call(TimerPre, true, "pre advance stage 2", func() error {
		return in.s.PreAdvanceStage2(ctx, iter)
	})
}

func (in *Instance) CallAdvanceTimestep(ctx context.Context, iter int, incremental bool) error {
	return in.call(TimerSolve, incremental, "advance timestep", func() error {
		return in.s.AdvanceTimestep(ctx, iter)
	})
}

func (in *Instance) CallAdditionalPicardIterations(ctx context.Context, n int) error {
	return in.call(TimerSolve, true, "additional picard iterations", func() error {
		return in.s.AdditionalPicardIterations(ctx, n)
	})
}

func (in *Instance) CallPostAdvance(ctx context.Context) error {
	return in.call(TimerPost, false, "post advance", func() error {
		return in.s.PostAdvance(ctx)
	})
}

func (in *Instance) CallPreOversetConnWork(ctx context.Context) error {
	return in.call(TimerConn, false, "pre overset connectivity work", func() error {
		return in.s.PreOversetConnWork(ctx)
	})
}

func (in *Instance) CallPostOversetConnWork(ctx context.Context) error {
	return in.call(TimerConn, true, "post overset connectivity work", func() error {
		return in.s.PostOversetConnWork(ctx)
	})
}

func (in *Instance) CallRegisterSolution(ctx context.Context) error {
	return in.call(TimerConn, true, "register solution", func() error {
		return in.s.RegisterSolution(ctx)
	})
}

func (in *Instance) CallUpdateSolution(ctx context.Context) error {
	return in.call(TimerConn, true, "update solution", func() error {
		return in.s.UpdateSolution(ctx)
	})
}

func (in *Instance) CallDumpSimulationTime(ctx context.Context) error {
	if err := in.s.DumpSimulationTime(ctx); err != nil {
		return fmt.Errorf("%s: dump simulation time: %w", in.s.Identifier(), err)
	}
	return nil
}

// Close releases the engine.
func (in *Instance) Close() error {
	if err := in.s.Close(); err != nil {
		return fmt.Errorf("%s: close: %w", in.s.Identifier(), err)
	}
	return nil
}

// ReportTimings reduces the instance's timers over its own process group and
// prints them from the group's first rank: one console line to out and
// detail lines to timingPath. Every member of the group must call it.
func (in *Instance) ReportTimings(ctx context.Context, step int, out io.Writer, timingPath string) error {
	c := in.s.Comm()
	p := telemetry.NewPrinter(c, 0, out, timingPath)
	sum, err := in.timers.Summarize(ctx, c, p.IORank())
	if err != nil {
		return fmt.Errorf("%s: timings: %w", in.s.Identifier(), err)
	}
	if sum == nil {
		return nil
	}
	p.Echo(sum.Line(in.s.Identifier(), step))
	return p.TimingToFile(sum.Detail(in.s.Identifier(), step))
}

// ReportMemory reduces one memory sample per rank over the instance's process
// group and prints min/avg/max/total from the group's first rank. Every
// member of the group must call it.
func (in *Instance) ReportMemory(ctx context.Context, mem int64, out io.Writer) error {
	c := in.s.Comm()
	p := telemetry.NewPrinter(c, 0, out, "")
	stats, err := telemetry.ReduceMemory(ctx, c, p.IORank(), mem)
	if err != nil {
		return fmt.Errorf("%s: memory: %w", in.s.Identifier(), err)
	}
	if stats != nil {
		p.Echo(stats.Line(in.s.Identifier()))
	}
	return nil
}
