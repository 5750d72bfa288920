package connectivity

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

// Compile-time interface check.
var _ Backend = (*Local)(nil)

// Stats counts the backend entry points a rank has executed.
type Stats struct {
	Profiles        int
	Connectivity    int
	ConnectivityAMR int
	PreprocessAMR   int
	DataUpdates     int
	DataUpdatesAMR  int
	BlocksExchanged int
	AMRMeshes       int
}

// Local is an in-process backend. Every phase entry point synchronizes the
// full pool, which is the part of the real library's behaviour the
// orchestrator depends on. Registrations are rank-local and are consumed by
// the next data update.
type Local struct {
	mu sync.Mutex
	c  comm.Comm

	blocks  []Block
	amrSols []AMRSolution
	meshes  []AMRMesh
	stats   Stats
}

// NewLocal creates an unbound Local backend. The orchestrator binds it with
// SetCommunicator.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) SetCommunicator(c comm.Comm) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c = c
}

// Stats returns a snapshot of the phase counters.
func (l *Local) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Local) Profile(ctx context.Context) error {
	return l.phase(ctx, "profile", func() error {
		l.stats.Profiles++
		return nil
	})
}

func (l *Local) PerformConnectivity(ctx context.Context) error {
	return l.phase(ctx, "connectivity", func() error {
		l.stats.Connectivity++
		return nil
	})
}

func (l *Local) PerformConnectivityAMR(ctx context.Context) error {
	return l.phase(ctx, "connectivity-amr", func() error {
		l.stats.ConnectivityAMR++
		return nil
	})
}

func (l *Local) PreprocessAMRData(ctx context.Context) error {
	return l.phase(ctx, "preprocess-amr", func() error {
		l.stats.PreprocessAMR++
		return nil
	})
}

func (l *Local) RegisterAMRMesh(ctx context.Context, m AMRMesh) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.meshes = append(l.meshes, m)
	l.stats.AMRMeshes++
	return nil
}

func (l *Local) RegisterAMRSolution(ctx context.Context, s AMRSolution) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.amrSols = append(l.amrSols, s)
	return nil
}

func (l *Local) RegisterBlock(ctx context.Context, b Block) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks = append(l.blocks, b)
	return nil
}

func (l *Local) DataUpdateAMR(ctx context.Context) error {
	return l.phase(ctx, "data-update-amr", func() error {
		l.stats.DataUpdatesAMR++
		l.stats.BlocksExchanged += len(l.blocks) + len(l.amrSols)
		l.resetRegistrations()
		return nil
	})
}

func (l *Local) DataUpdate(ctx context.Context, ncomps int, rowMajor bool) error {
	return l.phase(ctx, "data-update", func() error {
		defer l.resetRegistrations()
		for _, b := range l.blocks {
			if b.NComps != ncomps {
				return fmt.Errorf("connectivity: block of %s has %d components, exchange sized for %d: %w",
					b.Solver, b.NComps, ncomps, ErrComponentMismatch)
			}
		}
		l.stats.DataUpdates++
		l.stats.BlocksExchanged += len(l.blocks)
		return nil
	})
}

// phase synchronizes the pool, then applies fn to this rank's state.
func (l *Local) phase(ctx context.Context, name string, fn func() error) error {
	l.mu.Lock()
	c := l.c
	l.mu.Unlock()
	if c == nil {
		return fmt.Errorf("connectivity: %s: %w", name, ErrNoCommunicator)
	}
	if err := c.Barrier(ctx); err != nil {
		return fmt.Errorf("connectivity: %s: %w", name, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn()
}

func (l *Local) resetRegistrations() {
	l.blocks = l.blocks[:0]
	l.amrSols = l.amrSols[:0]
}
