package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/connectivity"
	"github.com/dusk-indust/oversetsim/internal/solver"
	"github.com/dusk-indust/oversetsim/internal/telemetry"
)

// Simulation-level timer sets and their report labels.
const (
	labelRun     = "Exawind"
	labelOverset = "Overset"

	timerTimeStep     = "TimeStep"
	timerConnectivity = "Connectivity"
	timerExchange     = "SolExchange"
)

// Simulation owns the solver roster of one rank and drives it in lock-step
// with the other ranks of the pool.
type Simulation struct {
	comm    comm.Comm
	backend connectivity.Backend
	opts    Options
	log     *slog.Logger
	printer *telemetry.Printer
	memlog  *telemetry.MemoryLog

	runTimers     *telemetry.Timers
	oversetTimers *telemetry.Timers

	roster []*solver.Instance
	state  State

	hasAMR          bool
	hasUnstructured bool
	interval        int
	ncomps          int
	lastStep        int
	step            int
}

// NewSimulation creates a Simulation over the full pool c. The backend is
// bound to c here and is shared by every registered solver.
func NewSimulation(c comm.Comm, backend connectivity.Backend, opts Options) *Simulation {
	opts = opts.withDefaults()
	backend.SetCommunicator(c)
	return &Simulation{
		comm:          c,
		backend:       backend,
		opts:          opts,
		log:           opts.Logger.With("rank", c.Rank()),
		printer:       telemetry.NewPrinter(c, opts.IORank, opts.Stdout, opts.timingPath()),
		memlog:        telemetry.NewMemoryLog(opts.memoryPath(), telemetry.MemoryHeader, opts.MemorySampler),
		runTimers:     telemetry.NewTimers(opts.Clock, timerTimeStep),
		oversetTimers: telemetry.NewTimers(opts.Clock, timerConnectivity, timerExchange),
		interval:      solver.NeverUpdate,
	}
}

// State returns the lifecycle state.
func (s *Simulation) State() State { return s.state }

// Interval returns the agreed connectivity update interval. It is valid after
// Initialize.
func (s *Simulation) Interval() int { return s.interval }

// LastStep returns the most recently completed step.
func (s *Simulation) LastStep() int { return s.lastStep }

// Instances returns this rank's roster in registration order.
func (s *Simulation) Instances() []*solver.Instance { return s.roster }

// RegisterSolver adds a solver owned (at least partly) by this rank. Solvers
// must be registered in the same relative order on every rank.
func (s *Simulation) RegisterSolver(sv solver.Solver) error {
	if s.state != StateConstructed {
		return fmt.Errorf("orchestrator: register %s in state %s: %w", sv.Identifier(), s.state, ErrInvalidState)
	}
	if sv.Comm() == nil {
		return fmt.Errorf("orchestrator: register %s: %w", sv.Identifier(), ErrNilGroup)
	}
	s.roster = append(s.roster, solver.NewInstance(sv, s.opts.Clock))
	s.log.Debug("registered solver", "solver", sv.Identifier(), "group", sv.Comm().Name())
	return nil
}

// Initialize runs the one-time lifecycle: capability check, init hooks,
// interval agreement, the initial connectivity and exchange rounds, and the
// time-index cross-check. Every rank of the pool must call it.
func (s *Simulation) Initialize(ctx context.Context) (err error) {
	if s.state != StateConstructed {
		return fmt.Errorf("orchestrator: initialize in state %s: %w", s.state, ErrInvalidState)
	}
	s.emit(PhaseInit, 0, PhaseWorking, "")
	defer func() {
		if err != nil {
			s.emit(PhaseInit, 0, PhaseFailed, err.Error())
		}
	}()

	header := []string{telemetry.TimingHeader}
	if s.opts.RunID != "" {
		header = append(header, telemetry.RunIDPrefix+s.opts.RunID)
	}
	if err := s.printer.Reset(header...); err != nil {
		return fmt.Errorf("orchestrator: reset timing log: %w", err)
	}
	if err := s.classify(ctx); err != nil {
		return err
	}
	if !s.hasUnstructured {
		return fmt.Errorf("orchestrator: initialize: %w", ErrNoUnstructuredSolver)
	}

	for _, in := range s.roster {
		if err := in.CallInitProlog(ctx, true); err != nil {
			return err
		}
	}

	interval, err := DetermineInterval(ctx, s.comm, s.roster)
	if err != nil {
		return err
	}
	s.interval = interval
	s.printer.Echo(fmt.Sprintf("Overset update interval = %d", interval))

	if !s.hasAMR {
		if err := s.agreeComponents(ctx); err != nil {
			return err
		}
	}

	for _, in := range s.roster {
		if err := in.CallInitEpilog(ctx); err != nil {
			return err
		}
		if err := in.CallPrepareSolverProlog(ctx); err != nil {
			return err
		}
	}

	if err := s.PerformOversetConnectivity(ctx); err != nil {
		return err
	}
	if err := s.ExchangeSolution(ctx, false); err != nil {
		return err
	}

	for _, in := range s.roster {
		if err := in.CallPrepareSolverEpilog(ctx); err != nil {
			return err
		}
	}

	start, err := s.agreeTimeIndex(ctx)
	if err != nil {
		return err
	}
	s.lastStep = start

	if err := s.comm.Barrier(ctx); err != nil {
		return fmt.Errorf("orchestrator: initialize barrier: %w", err)
	}
	s.state = StateInitialized
	s.emit(PhaseInit, 0, PhaseComplete, "")
	s.log.Info("simulation initialized",
		"solvers", len(s.roster), "interval", s.interval, "start_step", s.lastStep, "amr", s.hasAMR)
	return nil
}

// RunTimesteps advances the coupled system by nsteps steps, each made of
// nonlinear Picard sub-iterations. A positive extraPicard adds one exchange
// round and an additional-iterations call per step. Every rank of the pool
// must call it with the same arguments.
func (s *Simulation) RunTimesteps(ctx context.Context, extraPicard, nonlinear, nsteps int) error {
	switch s.state {
	case StateInitialized, StateStepping:
	case StateConstructed:
		return fmt.Errorf("orchestrator: run timesteps: %w", ErrNotInitialized)
	default:
		return fmt.Errorf("orchestrator: run timesteps in state %s: %w", s.state, ErrInvalidState)
	}
	if nonlinear < 1 {
		nonlinear = 1
	}
	s.state = StateStepping

	first := s.lastStep + 1
	s.printer.Echo(fmt.Sprintf("Running %d timesteps starting from %d", nsteps, first))

	for step := first; step < first+nsteps; step++ {
		if err := s.runStep(ctx, step, extraPicard, nonlinear); err != nil {
			return err
		}
		s.lastStep = step
	}
	return nil
}

func (s *Simulation) runStep(ctx context.Context, step, extraPicard, nonlinear int) error {
	s.step = step
	s.printer.EchoTimeHeader(step)
	s.runTimers.Tick(timerTimeStep, false)

	for iter := 0; iter < nonlinear; iter++ {
		incremental := iter > 0

		for _, in := range s.roster {
			if err := in.CallPreAdvanceStage1(ctx, iter, incremental); err != nil {
				return err
			}
		}

		if ShouldUpdate(step, s.interval) {
			if err := s.PerformOversetConnectivity(ctx); err != nil {
				return err
			}
		}

		for _, in := range s.roster {
			if err := in.CallPreAdvanceStage2(ctx, iter); err != nil {
				return err
			}
		}

		if err := s.exchange(ctx, iter, incremental); err != nil {
			return err
		}

		s.emit(PhaseAdvance, iter, PhaseWorking, "")
		for _, in := range s.roster {
			if err := in.CallAdvanceTimestep(ctx, iter, incremental); err != nil {
				return s.fail(PhaseAdvance, iter, err)
			}
		}
		s.emit(PhaseAdvance, iter, PhaseComplete, "")
	}

	if extraPicard > 0 {
		if err := s.exchange(ctx, nonlinear, true); err != nil {
			return err
		}
		s.emit(PhasePicard, 0, PhaseWorking, "")
		for _, in := range s.roster {
			if err := in.CallAdditionalPicardIterations(ctx, extraPicard); err != nil {
				return s.fail(PhasePicard, 0, err)
			}
		}
		s.emit(PhasePicard, 0, PhaseComplete, "")
	}

	s.emit(PhasePostAdvance, 0, PhaseWorking, "")
	for _, in := range s.roster {
		if err := in.CallPostAdvance(ctx); err != nil {
			return s.fail(PhasePostAdvance, 0, err)
		}
	}
	if err := s.comm.Barrier(ctx); err != nil {
		return s.fail(PhasePostAdvance, 0, err)
	}
	s.runTimers.Tock(timerTimeStep)
	s.emit(PhasePostAdvance, 0, PhaseComplete, "")

	return s.stepTelemetry(ctx, step)
}

// Finalize dumps each solver's simulation time and releases every solver.
// Close runs on every instance even when an earlier call fails.
func (s *Simulation) Finalize(ctx context.Context) error {
	if s.state == StateFinalized {
		return fmt.Errorf("orchestrator: finalize: %w", ErrInvalidState)
	}
	s.emit(PhaseFinalize, 0, PhaseWorking, "")

	var errs []error
	if s.state != StateConstructed {
		for _, in := range s.roster {
			if err := in.CallDumpSimulationTime(ctx); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	for _, in := range s.roster {
		if err := in.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.roster = nil
	s.state = StateFinalized

	if err := errors.Join(errs...); err != nil {
		s.emit(PhaseFinalize, 0, PhaseFailed, err.Error())
		return err
	}
	s.emit(PhaseFinalize, 0, PhaseComplete, "")
	s.log.Info("simulation finalized", "last_step", s.lastStep)
	return nil
}

// classify agrees on which solver kinds take part anywhere in the pool.
func (s *Simulation) classify(ctx context.Context) error {
	flags := []int{0, 0}
	for _, in := range s.roster {
		if in.Solver().IsStructuredAMR() {
			flags[0] = 1
		}
		if in.Solver().IsUnstructured() {
			flags[1] = 1
		}
	}
	out, err := s.comm.AllreduceInts(ctx, flags, comm.OpMax)
	if err != nil {
		return fmt.Errorf("orchestrator: reduce solver kinds: %w", err)
	}
	s.hasAMR = out[0] == 1
	s.hasUnstructured = out[1] == 1
	return nil
}

// agreeTimeIndex checks that every solver on every rank reports the same
// time index and returns it.
func (s *Simulation) agreeTimeIndex(ctx context.Context) (int, error) {
	lo, hi, err := s.agreeRange(ctx, func(in *solver.Instance) int { return in.Solver().TimeIndex() })
	if err != nil {
		return 0, fmt.Errorf("orchestrator: reduce time index: %w", err)
	}
	if lo != hi {
		return 0, fmt.Errorf("orchestrator: solvers report time indices from %d to %d: %w", lo, hi, ErrTimeIndexMismatch)
	}
	return lo, nil
}

// agreeComponents fixes the component count of the homogeneous exchange.
func (s *Simulation) agreeComponents(ctx context.Context) error {
	lo, hi, err := s.agreeRange(ctx, func(in *solver.Instance) int { return in.Solver().FieldComponentCount() })
	if err != nil {
		return fmt.Errorf("orchestrator: reduce component counts: %w", err)
	}
	if lo != hi {
		return fmt.Errorf("orchestrator: solvers report %d to %d field components: %w", lo, hi, ErrHeterogeneousExchange)
	}
	s.ncomps = lo
	return nil
}

// agreeRange reduces a per-solver value to its pool-wide minimum and maximum.
// Ranks without solvers contribute neutral values.
func (s *Simulation) agreeRange(ctx context.Context, value func(*solver.Instance) int) (int, int, error) {
	lo, hi := math.MaxInt, math.MinInt
	for _, in := range s.roster {
		v := value(in)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	mins, err := s.comm.AllreduceInts(ctx, []int{lo}, comm.OpMin)
	if err != nil {
		return 0, 0, err
	}
	maxs, err := s.comm.AllreduceInts(ctx, []int{hi}, comm.OpMax)
	if err != nil {
		return 0, 0, err
	}
	return mins[0], maxs[0], nil
}

func (s *Simulation) emit(phase Phase, iter int, status PhaseStatus, msg string) {
	s.opts.Progress(PhaseEvent{Step: s.step, Iteration: iter, Phase: phase, Status: status, Message: msg})
}

func (s *Simulation) fail(phase Phase, iter int, err error) error {
	s.emit(phase, iter, PhaseFailed, err.Error())
	s.log.Error("phase failed", "phase", phase.String(), "step", s.step, "err", err)
	return err
}
