package config

import (
	"errors"
	"fmt"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

var (
	// ErrTooManyRanks is returned when a solver kind requests more ranks
	// than the pool has.
	ErrTooManyRanks = errors.New("requesting more ranks than available")

	// ErrTooFewRanks is returned when the unstructured solvers cannot each
	// get at least one rank.
	ErrTooFewRanks = errors.New("fewer unstructured ranks than unstructured solvers")

	// ErrUnusedRanks is returned when the layout leaves ranks of the pool
	// without a solver.
	ErrUnusedRanks = errors.New("using fewer ranks than available ranks")
)

// Layout places the solver process groups in the pool. The AMR group starts
// at rank 0; the unstructured groups are packed against the end of the pool.
type Layout struct {
	AMR          *comm.GroupSpec
	Unstructured []comm.GroupSpec
}

// Specs returns every group, the AMR group first.
func (l Layout) Specs() []comm.GroupSpec {
	specs := make([]comm.GroupSpec, 0, len(l.Unstructured)+1)
	if l.AMR != nil {
		specs = append(specs, *l.AMR)
	}
	return append(specs, l.Unstructured...)
}

// PlanLayout splits a pool of ranks between one optional AMR solver and
// numUnstructured unstructured solvers. A non-positive rank count means the
// whole pool. Unstructured ranks are divided as evenly as possible, the last
// solvers taking the remainder. Groups may overlap unless exclusive is set.
func PlanLayout(pool, amrRanks, unstructuredRanks, numUnstructured int, useAMR, exclusive bool) (Layout, error) {
	if amrRanks <= 0 {
		amrRanks = pool
	}
	if unstructuredRanks <= 0 {
		unstructuredRanks = pool
	}
	if amrRanks > pool {
		return Layout{}, fmt.Errorf("config: AMR solver: %d of %d ranks: %w", amrRanks, pool, ErrTooManyRanks)
	}
	if unstructuredRanks > pool {
		return Layout{}, fmt.Errorf("config: unstructured solvers: %d of %d ranks: %w", unstructuredRanks, pool, ErrTooManyRanks)
	}
	if numUnstructured < 1 || unstructuredRanks < numUnstructured {
		return Layout{}, fmt.Errorf("config: %d ranks for %d unstructured solvers: %w",
			unstructuredRanks, numUnstructured, ErrTooFewRanks)
	}
	if !useAMR {
		amrRanks = 0
	}
	if amrRanks+unstructuredRanks < pool {
		return Layout{}, fmt.Errorf("config: pool size = %d; ranks used = %d: %w",
			pool, amrRanks+unstructuredRanks, ErrUnusedRanks)
	}

	var l Layout
	if useAMR {
		l.AMR = &comm.GroupSpec{Name: "amr-wind", Start: 0, Size: amrRanks}
	}
	l.Unstructured = comm.Contiguous("nalu-wind", pool-unstructuredRanks,
		comm.EvenSizes(unstructuredRanks, numUnstructured))

	if err := comm.ValidateSpecs(pool, l.Specs(), exclusive); err != nil {
		return Layout{}, fmt.Errorf("config: %w", err)
	}
	return l, nil
}
