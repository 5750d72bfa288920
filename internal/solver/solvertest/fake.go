// Package solvertest provides a recording Solver for tests of code that
// drives solvers.
package solvertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/connectivity"
	"github.com/dusk-indust/oversetsim/internal/solver"
)

// Compile-time interface check.
var _ solver.Solver = (*Fake)(nil)

// ErrInjected is returned by the hook named in Fake.FailOn when Fake.Err is nil.
var ErrInjected = errors.New("injected failure")

// Fake records every hook call. Zero values are usable: an unstructured
// flag must be set explicitly, the interval defaults to solver.NeverUpdate
// and the component count to 1.
type Fake struct {
	ID           string
	Group        comm.Comm
	AMR          bool
	Unstructured bool
	Interval     int
	NComps       int
	StartIndex   int

	// Backend, when set, receives a block (or AMR solution) registration in
	// RegisterSolution.
	Backend connectivity.Backend

	// FailOn names a hook ("InitProlog", "AdvanceTimestep", ...) that fails.
	FailOn string
	Err    error

	mu        sync.Mutex
	calls     []string
	index     int
	indexInit bool
	closed    bool
}

// Calls returns the recorded hook calls in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times the named hook ran.
func (f *Fake) Count(hook string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == hook {
			n++
		}
	}
	return n
}

// Closed reports whether Close ran.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) record(hook string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hook)
	if f.FailOn == hook {
		if f.Err != nil {
			return f.Err
		}
		return fmt.Errorf("%s in %s: %w", f.ID, hook, ErrInjected)
	}
	return nil
}

func (f *Fake) InitProlog(ctx context.Context, multiSolverMode bool) error {
	return f.record("InitProlog")
}
func (f *Fake) InitEpilog(ctx context.Context) error          { return f.record("InitEpilog") }
func (f *Fake) PrepareSolverProlog(ctx context.Context) error { return f.record("PrepareSolverProlog") }
func (f *Fake) PrepareSolverEpilog(ctx context.Context) error { return f.record("PrepareSolverEpilog") }

func (f *Fake) PreAdvanceStage1(ctx context.Context, iter int) error {
	return f.record("PreAdvanceStage1")
}
func (f *Fake) PreAdvanceStage2(ctx context.Context, iter int) error {
	return f.record("PreAdvanceStage2")
}
func (f *Fake) AdvanceTimestep(ctx context.Context, iter int) error {
	return f.record("AdvanceTimestep")
}
func (f *Fake) AdditionalPicardIterations(ctx context.Context, n int) error {
	return f.record("AdditionalPicardIterations")
}

// PostAdvance completes the step and moves the time index forward.
func (f *Fake) PostAdvance(ctx context.Context) error {
	if err := f.record("PostAdvance"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureIndex()
	f.index++
	return nil
}

func (f *Fake) DumpSimulationTime(ctx context.Context) error { return f.record("DumpSimulationTime") }

func (f *Fake) PreOversetConnWork(ctx context.Context) error  { return f.record("PreOversetConnWork") }
func (f *Fake) PostOversetConnWork(ctx context.Context) error { return f.record("PostOversetConnWork") }

func (f *Fake) RegisterSolution(ctx context.Context) error {
	if err := f.record("RegisterSolution"); err != nil {
		return err
	}
	if f.Backend == nil {
		return nil
	}
	if f.AMR {
		return f.Backend.RegisterAMRSolution(ctx, connectivity.AMRSolution{Solver: f.ID})
	}
	return f.Backend.RegisterBlock(ctx, connectivity.Block{Solver: f.ID, NComps: f.FieldComponentCount()})
}

func (f *Fake) UpdateSolution(ctx context.Context) error { return f.record("UpdateSolution") }

func (f *Fake) IsStructuredAMR() bool   { return f.AMR }
func (f *Fake) IsUnstructured() bool    { return f.Unstructured }
func (f *Fake) UsesFixedTimestep() bool { return !f.AMR }

func (f *Fake) OversetUpdateInterval() int {
	if f.Interval == 0 {
		return solver.NeverUpdate
	}
	return f.Interval
}

func (f *Fake) TimeIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureIndex()
	return f.index
}

func (f *Fake) Comm() comm.Comm    { return f.Group }
func (f *Fake) Identifier() string { return f.ID }

func (f *Fake) FieldComponentCount() int {
	if f.NComps == 0 {
		return 1
	}
	return f.NComps
}

func (f *Fake) Close() error {
	if err := f.record("Close"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *Fake) ensureIndex() {
	if !f.indexInit {
		f.index = f.StartIndex
		f.indexInit = true
	}
}
