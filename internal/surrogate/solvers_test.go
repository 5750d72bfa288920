package surrogate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/config"
	"github.com/dusk-indust/oversetsim/internal/connectivity"
	"github.com/dusk-indust/oversetsim/internal/orchestrator"
	"github.com/dusk-indust/oversetsim/internal/solver"
	"github.com/dusk-indust/oversetsim/internal/yamledit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInput_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "")
	in, err := LoadInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Input{FieldComponents: 1, Levels: 1}, in)
}

func TestLoadInput_Overrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "nalu.yaml", `start_step: 2
field_components: 1
work: 5ms
realms:
  - name: tower
`)
	in, err := LoadInput(path, map[string]any{"field_components": 3})
	require.NoError(t, err)
	assert.Equal(t, 2, in.StartStep)
	assert.Equal(t, 3, in.FieldComponents)
	assert.Equal(t, 5*time.Millisecond, in.Work)

	_, err = LoadInput(path, map[string]any{"realms": []any{map[string]any{"mesh": "x"}}})
	require.ErrorIs(t, err, yamledit.ErrGraphMismatch)
}

func TestOversetUpdateInterval(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want int
	}{
		{"fixed mesh", Input{}, solver.NeverUpdate},
		{"moving mesh", Input{MeshMotion: true, OversetInterval: 7}, 1},
		{"explicit", Input{OversetInterval: 4}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := engine{input: tt.in}
			assert.Equal(t, tt.want, e.OversetUpdateInterval())
		})
	}
}

func TestRegister(t *testing.T) {
	r := solver.NewRegistry()
	Register(r)
	assert.Equal(t, []solver.Kind{solver.KindAMR, solver.KindUnstructured}, r.Kinds())
}

func TestSurrogates_CoupledRun(t *testing.T) {
	dir := t.TempDir()
	amrInp := writeFile(t, dir, "amr.yaml", "levels: 2\nadaptive_timestep: true\n")
	towerInp := writeFile(t, dir, "tower.yaml", "field_components: 2\n")
	bladeInp := writeFile(t, dir, "blade.yaml", "mesh_motion: false\nfield_components: 2\n")

	layout, err := config.PlanLayout(3, 1, 2, 2, true, true)
	require.NoError(t, err)

	reg := solver.NewRegistry()
	Register(reg)

	backends := make([]*connectivity.Local, 3)
	sims := make([]*orchestrator.Simulation, 3)
	err = comm.Run(context.Background(), 3, func(ctx context.Context, world comm.Comm) error {
		groups, err := comm.Partition(ctx, world, layout.Specs(), true)
		if err != nil {
			return err
		}
		backend := connectivity.NewLocal()
		backends[world.Rank()] = backend
		sim := orchestrator.NewSimulation(world, backend, orchestrator.Options{OutputDir: dir, Stdout: io.Discard})
		sims[world.Rank()] = sim

		params := []struct {
			kind solver.Kind
			p    solver.Params
		}{
			{solver.KindAMR, solver.Params{InputFile: amrInp, CellVars: []string{"velocity"}, NodeVars: []string{"p"}}},
			{solver.KindUnstructured, solver.Params{Index: 0, InputFile: towerInp, Fields: []string{"velocity"},
				Overrides: map[string]any{"field_components": 2}}},
			{solver.KindUnstructured, solver.Params{Index: 1, InputFile: bladeInp, Fields: []string{"velocity"},
				Overrides: map[string]any{"mesh_motion": true}}},
		}
		for i, pp := range params {
			if groups[i] == nil {
				continue
			}
			pp.p.Comm = groups[i]
			pp.p.Backend = backend
			s, err := reg.Spawn(pp.kind, pp.p)
			if err != nil {
				return err
			}
			if err := sim.RegisterSolver(s); err != nil {
				return err
			}
		}

		if err := sim.Initialize(ctx); err != nil {
			return err
		}
		if err := sim.RunTimesteps(ctx, 1, 2, 3); err != nil {
			return err
		}
		return sim.Finalize(ctx)
	})
	require.NoError(t, err)

	for rank := range sims {
		// The moving blade forces connectivity every step.
		assert.Equal(t, 1, sims[rank].Interval())
		assert.Equal(t, 3, sims[rank].LastStep())
		stats := backends[rank].Stats()
		assert.Equal(t, 1+3*2, stats.ConnectivityAMR)
		// Initial exchange, two per step, one extra per step.
		assert.Equal(t, 1+3*3, stats.DataUpdatesAMR)
	}
	assert.Equal(t, 1+3*2, backends[0].Stats().AMRMeshes)
	assert.Zero(t, backends[1].Stats().AMRMeshes)
}
