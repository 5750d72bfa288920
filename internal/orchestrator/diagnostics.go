package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/oversetsim/internal/telemetry"
)

// stepTelemetry reports timings and memory usage at the end of a step.
func (s *Simulation) stepTelemetry(ctx context.Context, step int) error {
	s.emit(PhaseTelemetry, 0, PhaseWorking, "")
	if err := s.comm.Barrier(ctx); err != nil {
		return s.fail(PhaseTelemetry, 0, err)
	}
	if err := s.reportTimings(ctx, step); err != nil {
		return s.fail(PhaseTelemetry, 0, err)
	}
	if err := s.comm.Barrier(ctx); err != nil {
		return s.fail(PhaseTelemetry, 0, err)
	}
	if err := s.reportMemory(ctx, step); err != nil {
		return s.fail(PhaseTelemetry, 0, err)
	}
	s.emit(PhaseTelemetry, 0, PhaseComplete, "")
	return nil
}

// reportTimings prints the pool-wide timers, then each solver's timers over
// its own group. Solvers are visited in registration order on every rank, so
// ranks sharing several groups enter them in the same order.
func (s *Simulation) reportTimings(ctx context.Context, step int) error {
	for _, set := range []struct {
		label  string
		timers *telemetry.Timers
	}{
		{labelRun, s.runTimers},
		{labelOverset, s.oversetTimers},
	} {
		sum, err := set.timers.Summarize(ctx, s.comm, s.printer.IORank())
		if err != nil {
			return fmt.Errorf("orchestrator: %s timings: %w", set.label, err)
		}
		if sum == nil {
			continue
		}
		s.printer.Echo(sum.Line(set.label, step))
		if err := s.printer.TimingToFile(sum.Detail(set.label, step)); err != nil {
			return fmt.Errorf("orchestrator: %s timings: %w", set.label, err)
		}
	}

	for _, in := range s.roster {
		if err := in.ReportTimings(ctx, step, s.opts.Stdout, s.opts.timingPath()); err != nil {
			return err
		}
	}
	return nil
}

// reportMemory appends this step to the memory log and prints per-solver
// usage.
func (s *Simulation) reportMemory(ctx context.Context, step int) error {
	mem, err := s.memlog.Record(ctx, s.comm, s.printer.IORank(), step)
	if err != nil {
		return err
	}
	for _, in := range s.roster {
		if err := in.ReportMemory(ctx, mem, s.opts.Stdout); err != nil {
			return err
		}
	}
	s.log.Debug("step complete", "step", step, "memory_mb", mem)
	return nil
}
