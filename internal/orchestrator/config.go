package orchestrator

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dusk-indust/oversetsim/internal/telemetry"
)

// Artifact file names written under Options.OutputDir.
const (
	TimingFile = "timings.dat"
	MemoryFile = "memusage.dat"
)

// Options holds runtime configuration for a Simulation.
type Options struct {
	// OutputDir is where the timing and memory logs are written.
	// Empty means the working directory.
	OutputDir string

	// RunID, when set, is stamped into the timing log header.
	RunID string

	// IORank is the rank of the full pool that prints and writes artifacts.
	IORank int

	// Clock drives every timer. Nil uses the wall clock.
	Clock telemetry.Clock

	// MemorySampler reports this rank's memory usage. Nil uses
	// telemetry.ResidentMB.
	MemorySampler telemetry.Sampler

	// Logger receives structured diagnostics. Nil discards them.
	Logger *slog.Logger

	// Progress, when set, receives a PhaseEvent at each phase boundary.
	Progress func(PhaseEvent)

	// Stdout receives console output on reporting ranks. Nil uses os.Stdout.
	Stdout io.Writer
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Progress == nil {
		o.Progress = func(PhaseEvent) {}
	}
	return o
}

func (o Options) timingPath() string { return filepath.Join(o.OutputDir, TimingFile) }
func (o Options) memoryPath() string { return filepath.Join(o.OutputDir, MemoryFile) }
