package surrogate

import (
	"context"
	"fmt"

	"github.com/dusk-indust/oversetsim/internal/connectivity"
	"github.com/dusk-indust/oversetsim/internal/solver"
)

// Compile-time interface checks.
var (
	_ solver.Solver = (*AMR)(nil)
	_ solver.Solver = (*Unstructured)(nil)
)

// AMR stands in for a block-structured adaptive mesh solver.
type AMR struct {
	engine
	cellVars []string
	nodeVars []string
}

// NewAMR creates an AMR surrogate from p.
func NewAMR(p solver.Params) (solver.Solver, error) {
	in, err := LoadInput(p.InputFile, p.Overrides)
	if err != nil {
		return nil, err
	}
	return &AMR{
		engine:   newEngine("AMR-Wind", p, in),
		cellVars: p.CellVars,
		nodeVars: p.NodeVars,
	}, nil
}

func (a *AMR) IsStructuredAMR() bool   { return true }
func (a *AMR) IsUnstructured() bool    { return false }
func (a *AMR) UsesFixedTimestep() bool { return !a.input.AdaptiveTimestep }

// PreOversetConnWork hands the current mesh hierarchy to the backend.
func (a *AMR) PreOversetConnWork(ctx context.Context) error {
	return a.backend.RegisterAMRMesh(ctx, connectivity.AMRMesh{
		Solver:  a.id,
		Levels:  a.input.Levels,
		Patches: a.group.Size(),
	})
}

func (a *AMR) RegisterSolution(ctx context.Context) error {
	return a.backend.RegisterAMRSolution(ctx, connectivity.AMRSolution{
		Solver:   a.id,
		CellVars: a.cellVars,
		NodeVars: a.nodeVars,
	})
}

// Unstructured stands in for an unstructured mesh solver.
type Unstructured struct {
	engine
	fields []string
}

// NewUnstructured creates an unstructured surrogate from p.
func NewUnstructured(p solver.Params) (solver.Solver, error) {
	in, err := LoadInput(p.InputFile, p.Overrides)
	if err != nil {
		return nil, err
	}
	return &Unstructured{
		engine: newEngine(fmt.Sprintf("Nalu-Wind-%d", p.Index), p, in),
		fields: p.Fields,
	}, nil
}

func (u *Unstructured) IsStructuredAMR() bool { return false }
func (u *Unstructured) IsUnstructured() bool  { return true }

func (u *Unstructured) PreOversetConnWork(ctx context.Context) error { return nil }

func (u *Unstructured) RegisterSolution(ctx context.Context) error {
	return u.backend.RegisterBlock(ctx, connectivity.Block{
		Solver: u.id,
		Fields: u.fields,
		NComps: u.input.FieldComponents,
	})
}

// Register adds both surrogate kinds to r.
func Register(r *solver.Registry) {
	r.Register(solver.KindAMR, NewAMR)
	r.Register(solver.KindUnstructured, NewUnstructured)
}
