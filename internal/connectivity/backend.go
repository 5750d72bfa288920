// Package connectivity defines the boundary to the overset connectivity
// library: the shared resource that determines field, fringe and hole points
// across the overlapping meshes and moves solution data between them.
//
// One Backend is owned by the orchestrator for the whole run and handed to
// each solver explicitly. The phase entry points are collective over the
// full pool; the orchestrator calls them on every rank in a fixed order, so
// the backend needs no locking of its own.
package connectivity

import (
	"context"
	"errors"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

// ErrComponentMismatch is returned by DataUpdate when a registered block's
// component count differs from the requested one.
var ErrComponentMismatch = errors.New("field component count mismatch")

// ErrNoCommunicator is returned when a collective entry point runs before
// SetCommunicator.
var ErrNoCommunicator = errors.New("backend has no communicator")

// AMRMesh describes the structured AMR hierarchy a solver contributes.
type AMRMesh struct {
	Solver  string
	Levels  int
	Patches int
}

// AMRSolution names the AMR fields registered for exchange.
type AMRSolution struct {
	Solver   string
	CellVars []string
	NodeVars []string
}

// Block is an unstructured mesh block registered for exchange.
type Block struct {
	Solver string
	Fields []string
	NComps int
}

// Backend is the connectivity library contract.
type Backend interface {
	// SetCommunicator binds the backend to the full rank pool.
	SetCommunicator(c comm.Comm)

	// Profile runs the library's load profiling step.
	Profile(ctx context.Context) error

	// PerformConnectivity computes connectivity for unstructured meshes.
	PerformConnectivity(ctx context.Context) error

	// PerformConnectivityAMR computes connectivity against the AMR mesh.
	PerformConnectivityAMR(ctx context.Context) error

	// PreprocessAMRData prepares registered AMR data before connectivity.
	PreprocessAMRData(ctx context.Context) error

	// RegisterAMRMesh records the local part of an AMR hierarchy.
	RegisterAMRMesh(ctx context.Context, m AMRMesh) error

	// RegisterAMRSolution records AMR fields for the next data update.
	RegisterAMRSolution(ctx context.Context, s AMRSolution) error

	// RegisterBlock records an unstructured block for the next data update.
	RegisterBlock(ctx context.Context, b Block) error

	// DataUpdateAMR exchanges data when an AMR solver takes part.
	DataUpdateAMR(ctx context.Context) error

	// DataUpdate exchanges data between unstructured solvers whose fields
	// all have ncomps components.
	DataUpdate(ctx context.Context, ncomps int, rowMajor bool) error
}
