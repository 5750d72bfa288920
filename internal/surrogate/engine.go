package surrogate

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/connectivity"
	"github.com/dusk-indust/oversetsim/internal/solver"
)

// engine is the lifecycle shared by both surrogate kinds.
type engine struct {
	solver.Defaults

	id      string
	group   comm.Comm
	backend connectivity.Backend
	input   Input
	log     *slog.Logger

	step     int
	simTime  time.Duration
	advances int
}

func newEngine(id string, p solver.Params, in Input) engine {
	log := p.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return engine{
		id:      id,
		group:   p.Comm,
		backend: p.Backend,
		input:   in,
		log:     log.With("solver", id, "group_rank", p.Comm.Rank()),
		step:    in.StartStep,
	}
}

func (e *engine) InitProlog(ctx context.Context, multiSolverMode bool) error {
	e.log.Debug("init prolog", "multi_solver", multiSolverMode, "start_step", e.step)
	return e.group.Barrier(ctx)
}

func (e *engine) InitEpilog(ctx context.Context) error          { return nil }
func (e *engine) PrepareSolverProlog(ctx context.Context) error { return nil }
func (e *engine) PrepareSolverEpilog(ctx context.Context) error { return nil }

func (e *engine) PreAdvanceStage1(ctx context.Context, iter int) error { return nil }
func (e *engine) PreAdvanceStage2(ctx context.Context, iter int) error { return nil }

// AdvanceTimestep spends the configured work and keeps the group in step.
func (e *engine) AdvanceTimestep(ctx context.Context, iter int) error {
	if err := e.work(ctx); err != nil {
		return err
	}
	e.advances++
	return e.group.Barrier(ctx)
}

func (e *engine) AdditionalPicardIterations(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := e.AdvanceTimestep(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) PostAdvance(ctx context.Context) error {
	e.step++
	e.simTime += e.input.Work
	return nil
}

func (e *engine) DumpSimulationTime(ctx context.Context) error {
	e.log.Info("simulation time", "steps", e.step, "advances", e.advances, "work", e.simTime)
	return nil
}

func (e *engine) PostOversetConnWork(ctx context.Context) error { return nil }
func (e *engine) UpdateSolution(ctx context.Context) error      { return nil }

// OversetUpdateInterval is 1 while the mesh moves. Otherwise the input's
// explicit interval, or never.
func (e *engine) OversetUpdateInterval() int {
	switch {
	case e.input.MeshMotion:
		return 1
	case e.input.OversetInterval > 0:
		return e.input.OversetInterval
	default:
		return solver.NeverUpdate
	}
}

func (e *engine) TimeIndex() int           { return e.step }
func (e *engine) Comm() comm.Comm          { return e.group }
func (e *engine) Identifier() string       { return e.id }
func (e *engine) FieldComponentCount() int { return e.input.FieldComponents }

func (e *engine) work(ctx context.Context) error {
	if e.input.Work <= 0 {
		return nil
	}
	t := time.NewTimer(e.input.Work)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
