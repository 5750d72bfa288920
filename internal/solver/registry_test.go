package solver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/oversetsim/internal/solver"
	"github.com/dusk-indust/oversetsim/internal/solver/solvertest"
)

func TestRegistry_SpawnRegisteredKind(t *testing.T) {
	r := solver.NewRegistry()
	r.Register(solver.KindUnstructured, func(p solver.Params) (solver.Solver, error) {
		return &solvertest.Fake{ID: "Nalu-Wind", Group: p.Comm, Unstructured: true}, nil
	})

	s, err := r.Spawn(solver.KindUnstructured, solver.Params{Comm: singleRank(t)})
	require.NoError(t, err)
	assert.True(t, s.IsUnstructured())
	assert.Equal(t, []solver.Kind{solver.KindUnstructured}, r.Kinds())
}

func TestRegistry_SpawnUnknownKind(t *testing.T) {
	r := solver.NewRegistry()
	_, err := r.Spawn(solver.KindAMR, solver.Params{Comm: singleRank(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"amr"`)
}

func TestRegistry_SpawnRequiresGroup(t *testing.T) {
	r := solver.NewRegistry()
	called := false
	r.Register(solver.KindAMR, func(p solver.Params) (solver.Solver, error) {
		called = true
		return nil, nil
	})
	_, err := r.Spawn(solver.KindAMR, solver.Params{})
	require.Error(t, err)
	assert.False(t, called)
}

func TestRegistry_FactoryErrorWrapped(t *testing.T) {
	bad := errors.New("missing input file")
	r := solver.NewRegistry()
	r.Register(solver.KindAMR, func(p solver.Params) (solver.Solver, error) { return nil, bad })
	_, err := r.Spawn(solver.KindAMR, solver.Params{Comm: singleRank(t), Index: 3})
	require.ErrorIs(t, err, bad)
	assert.Contains(t, err.Error(), "amr solver 3")
}

func TestDefaults(t *testing.T) {
	var d solver.Defaults
	assert.Equal(t, solver.NeverUpdate, d.OversetUpdateInterval())
	assert.True(t, d.UsesFixedTimestep())
	assert.Equal(t, 1, d.FieldComponentCount())
	assert.NoError(t, d.Close())
}
