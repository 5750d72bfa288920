package orchestrator

import "errors"

var (
	// ErrNoUnstructuredSolver is returned by Initialize when no rank owns an
	// unstructured solver.
	ErrNoUnstructuredSolver = errors.New("overset simulation requires at least one unstructured solver")

	// ErrTimeIndexMismatch is returned by Initialize when solvers disagree on
	// the time index.
	ErrTimeIndexMismatch = errors.New("mismatch in solver time steps")

	// ErrInvalidInterval is returned when the agreed update interval is not
	// positive.
	ErrInvalidInterval = errors.New("invalid overset update interval")

	// ErrHeterogeneousExchange is returned when solvers without an AMR
	// participant report different field component counts.
	ErrHeterogeneousExchange = errors.New("heterogeneous field component counts in homogeneous exchange")

	// ErrNotInitialized is returned by RunTimesteps before Initialize.
	ErrNotInitialized = errors.New("overset simulation has not been initialized")

	// ErrNilGroup is returned when a solver is registered on a rank outside
	// its process group.
	ErrNilGroup = errors.New("solver has no process group on this rank")

	// ErrInvalidState is returned for a lifecycle call out of order.
	ErrInvalidState = errors.New("invalid simulation state")
)
