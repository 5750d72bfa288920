// Package solver defines the contract every coupled solver engine satisfies
// and the timed wrapper the orchestrator drives it through.
package solver

import (
	"context"
	"io"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

// NeverUpdate is the overset update interval of a solver that never needs
// connectivity recomputed during time stepping.
const NeverUpdate = 100000000

// Lifecycle hooks run once, during initialization.
type Lifecycle interface {
	InitProlog(ctx context.Context, multiSolverMode bool) error
	InitEpilog(ctx context.Context) error
	PrepareSolverProlog(ctx context.Context) error
	PrepareSolverEpilog(ctx context.Context) error
}

// Stepper hooks run every time step. iter is the nonlinear (Picard)
// sub-iteration index within the step.
type Stepper interface {
	PreAdvanceStage1(ctx context.Context, iter int) error
	PreAdvanceStage2(ctx context.Context, iter int) error
	AdvanceTimestep(ctx context.Context, iter int) error
	AdditionalPicardIterations(ctx context.Context, n int) error
	PostAdvance(ctx context.Context) error
	DumpSimulationTime(ctx context.Context) error
}

// Overset hooks bracket the connectivity and solution-exchange rounds.
type Overset interface {
	PreOversetConnWork(ctx context.Context) error
	PostOversetConnWork(ctx context.Context) error
	RegisterSolution(ctx context.Context) error
	UpdateSolution(ctx context.Context) error
}

// Capabilities are the static and per-step facts the orchestrator queries.
type Capabilities interface {
	// IsStructuredAMR reports a block-structured adaptive mesh solver.
	IsStructuredAMR() bool

	// IsUnstructured reports an unstructured mesh solver.
	IsUnstructured() bool

	// UsesFixedTimestep reports whether the solver keeps a constant step.
	UsesFixedTimestep() bool

	// OversetUpdateInterval is the solver's preferred connectivity cadence
	// in steps. NeverUpdate when its mesh is fixed.
	OversetUpdateInterval() int

	// TimeIndex is the solver's current time step count.
	TimeIndex() int

	// Comm is the process group the solver runs on.
	Comm() comm.Comm

	// Identifier names the instance in diagnostics.
	Identifier() string

	// FieldComponentCount is the number of components per exchanged field.
	FieldComponentCount() int
}

// Solver is a coupled solver engine. Close releases the engine; it is called
// once, before the owning process group is torn down.
type Solver interface {
	Lifecycle
	Stepper
	Overset
	Capabilities
	io.Closer
}

// Defaults supplies the optional parts of the Solver contract. Embed it and
// override what the engine supports.
type Defaults struct{}

func (Defaults) OversetUpdateInterval() int { return NeverUpdate }
func (Defaults) UsesFixedTimestep() bool    { return true }
func (Defaults) FieldComponentCount() int   { return 1 }

func (Defaults) AdditionalPicardIterations(ctx context.Context, n int) error { return nil }
func (Defaults) DumpSimulationTime(ctx context.Context) error                { return nil }
func (Defaults) Close() error                                                { return nil }
