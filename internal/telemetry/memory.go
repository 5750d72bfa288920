package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

// MemoryHeader is the first line of a freshly started memory log.
const MemoryHeader = "# time step, memory usage in MBs"

// Sampler reports the calling process's memory usage in MB.
type Sampler func() int64

// ResidentMB returns the peak resident set size of the current process in
// MB, or -1 when /proc is unavailable.
func ResidentMB() int64 {
	p, err := procfs.Self()
	if err != nil {
		return -1
	}
	st, err := p.NewStatus()
	if err != nil {
		return -1
	}
	return int64(st.VmHWM / (1024 * 1024))
}

// MemoryLog is the append-only per-step memory log of a run. Each Record
// gathers one value per rank of the communicator onto the reporting rank,
// which writes a line keyed by step. The first Record of a run truncates the
// file to its header.
type MemoryLog struct {
	path    string
	header  string
	sample  Sampler
	started bool
}

// NewMemoryLog creates a memory log at path. A nil sampler uses ResidentMB.
// An empty header uses MemoryHeader.
func NewMemoryLog(path, header string, sample Sampler) *MemoryLog {
	if sample == nil {
		sample = ResidentMB
	}
	if header == "" {
		header = MemoryHeader
	}
	return &MemoryLog{path: path, header: header, sample: sample}
}

// Record samples this rank's memory, gathers all ranks of c onto root and
// appends the line for step. It returns this rank's sample. Every member of
// c must call it.
func (m *MemoryLog) Record(ctx context.Context, c comm.Comm, root, step int) (int64, error) {
	mem := m.sample()
	all, err := c.GatherInt64(ctx, mem, root)
	if err != nil {
		return mem, fmt.Errorf("telemetry: gather memory usage: %w", err)
	}
	first := !m.started
	m.started = true
	if c.Rank() != root {
		return mem, nil
	}

	fields := make([]string, 0, len(all)+1)
	fields = append(fields, strconv.Itoa(step))
	for _, v := range all {
		fields = append(fields, strconv.FormatInt(v, 10))
	}
	line := strings.Join(fields, " ")

	if first {
		return mem, writeFile(m.path, []string{m.header, line}, false)
	}
	return mem, writeFile(m.path, []string{line}, true)
}

// MemoryStats is a memory sample reduced across a communicator.
type MemoryStats struct {
	Min, Avg, Max, Total int64
}

// ReduceMemory reduces one sample per rank of c onto root. Root receives the
// statistics, every other rank receives nil.
func ReduceMemory(ctx context.Context, c comm.Comm, root int, mem int64) (*MemoryStats, error) {
	var out [3][]int64
	for i, op := range []comm.Op{comm.OpMin, comm.OpSum, comm.OpMax} {
		v, err := c.ReduceInt64s(ctx, []int64{mem}, op, root)
		if err != nil {
			return nil, fmt.Errorf("telemetry: reduce memory %s: %w", op, err)
		}
		out[i] = v
	}
	if c.Rank() != root {
		return nil, nil
	}
	return &MemoryStats{
		Min:   out[0][0],
		Avg:   out[1][0] / int64(c.Size()),
		Max:   out[2][0],
		Total: out[1][0],
	}, nil
}

// Line formats the statistics for the console.
func (s *MemoryStats) Line(label string) string {
	return fmt.Sprintf("%s memory usage (MB) -- min: %d avg: %d max: %d total: %d",
		label, s.Min, s.Avg, s.Max, s.Total)
}
