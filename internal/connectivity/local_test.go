package connectivity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

func TestLocal_PhaseWithoutCommunicator(t *testing.T) {
	l := NewLocal()
	err := l.Profile(context.Background())
	require.ErrorIs(t, err, ErrNoCommunicator)
}

func TestLocal_CountsPhasesOnEveryRank(t *testing.T) {
	stats := make([]Stats, 3)
	err := comm.Run(context.Background(), 3, func(ctx context.Context, c comm.Comm) error {
		l := NewLocal()
		l.SetCommunicator(c)
		if err := l.PreprocessAMRData(ctx); err != nil {
			return err
		}
		if err := l.Profile(ctx); err != nil {
			return err
		}
		if err := l.PerformConnectivity(ctx); err != nil {
			return err
		}
		if err := l.PerformConnectivityAMR(ctx); err != nil {
			return err
		}
		if c.Rank() == 0 {
			if err := l.RegisterAMRMesh(ctx, AMRMesh{Solver: "AMR-Wind", Levels: 2, Patches: 8}); err != nil {
				return err
			}
			if err := l.RegisterAMRSolution(ctx, AMRSolution{Solver: "AMR-Wind", CellVars: []string{"velocity"}}); err != nil {
				return err
			}
		}
		if err := l.DataUpdateAMR(ctx); err != nil {
			return err
		}
		stats[c.Rank()] = l.Stats()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Profiles: 1, Connectivity: 1, ConnectivityAMR: 1, PreprocessAMR: 1,
		DataUpdatesAMR: 1, BlocksExchanged: 1, AMRMeshes: 1,
	}, stats[0])
	assert.Equal(t, Stats{
		Profiles: 1, Connectivity: 1, ConnectivityAMR: 1, PreprocessAMR: 1,
		DataUpdatesAMR: 1,
	}, stats[1])
}

func TestLocal_DataUpdateRejectsMismatchedComponents(t *testing.T) {
	w, err := comm.NewWorld(1)
	require.NoError(t, err)
	l := NewLocal()
	l.SetCommunicator(w.Comm(0))
	ctx := context.Background()

	require.NoError(t, l.RegisterBlock(ctx, Block{Solver: "Nalu-Wind-0", NComps: 4}))
	require.NoError(t, l.RegisterBlock(ctx, Block{Solver: "Nalu-Wind-1", NComps: 1}))
	err = l.DataUpdate(ctx, 4, false)
	require.ErrorIs(t, err, ErrComponentMismatch)
	assert.Contains(t, err.Error(), "Nalu-Wind-1")

	// Registrations are consumed even by a failed exchange.
	require.NoError(t, l.RegisterBlock(ctx, Block{Solver: "Nalu-Wind-0", NComps: 4}))
	require.NoError(t, l.DataUpdate(ctx, 4, false))
	assert.Equal(t, 1, l.Stats().DataUpdates)
	assert.Equal(t, 1, l.Stats().BlocksExchanged)
}
