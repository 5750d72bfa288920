// Package status reads the artifacts a coupled run leaves in its output
// directory and summarizes them.
package status

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dusk-indust/oversetsim/internal/orchestrator"
	"github.com/dusk-indust/oversetsim/internal/telemetry"
)

// ErrNoArtifacts is returned when a directory holds neither log.
var ErrNoArtifacts = errors.New("no run artifacts found")

// MemoryStep is one line of the memory log.
type MemoryStep struct {
	Step    int
	RanksMB []int64
}

// TimingRecord is one line of the timing log.
type TimingRecord struct {
	Label string // solver or subsystem, e.g. "Nalu-Wind-0"
	Phase string // timer name, e.g. "Conn"
	Step  int
	Min   float64
	Avg   float64
	Max   float64
}

// PhaseSummary aggregates one label::phase pair over all steps.
type PhaseSummary struct {
	Label    string
	Phase    string
	Steps    int
	TotalAvg float64 // sum of per-step averages, seconds
	PeakMax  float64 // largest per-step maximum, seconds
}

// RunStatus summarizes a run directory.
type RunStatus struct {
	Dir          string
	RunID        string
	LastStep     int
	Ranks        int
	PeakMemoryMB int64
	Phases       []PhaseSummary
}

// ReadMemoryLog parses a memory log.
func ReadMemoryLog(path string) ([]MemoryStep, error) {
	var steps []MemoryStep
	err := scanLines(path, func(line string) error {
		if strings.HasPrefix(line, "#") {
			return nil
		}
		fields := strings.Fields(line)
		step, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("step %q: %w", fields[0], err)
		}
		ms := MemoryStep{Step: step, RanksMB: make([]int64, 0, len(fields)-1)}
		for _, f := range fields[1:] {
			v, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return fmt.Errorf("step %d: memory %q: %w", step, f, err)
			}
			ms.RanksMB = append(ms.RanksMB, v)
		}
		steps = append(steps, ms)
		return nil
	})
	return steps, err
}

// ReadTimingLog parses a timing log. It also returns the run ID from the
// header, if any.
func ReadTimingLog(path string) ([]TimingRecord, string, error) {
	var (
		recs  []TimingRecord
		runID string
	)
	err := scanLines(path, func(line string) error {
		if id, ok := strings.CutPrefix(line, telemetry.RunIDPrefix); ok {
			runID = strings.TrimSpace(id)
			return nil
		}
		if strings.HasPrefix(line, "#") {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return fmt.Errorf("want 5 fields, got %d", len(fields))
		}
		label, phase, ok := strings.Cut(fields[0], "::")
		if !ok {
			return fmt.Errorf("phase %q has no label", fields[0])
		}
		step, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("step %q: %w", fields[1], err)
		}
		var vals [3]float64
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(fields[2+i], 64); err != nil {
				return fmt.Errorf("%s: %w", fields[0], err)
			}
		}
		recs = append(recs, TimingRecord{Label: label, Phase: phase, Step: step, Min: vals[0], Avg: vals[1], Max: vals[2]})
		return nil
	})
	return recs, runID, err
}

// Summarize reads both logs in dir. A missing log is skipped; a directory
// with neither returns ErrNoArtifacts.
func Summarize(dir string) (*RunStatus, error) {
	st := &RunStatus{Dir: dir}
	found := false

	mem, err := ReadMemoryLog(filepath.Join(dir, orchestrator.MemoryFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		found = true
		for _, m := range mem {
			st.LastStep = max(st.LastStep, m.Step)
			st.Ranks = max(st.Ranks, len(m.RanksMB))
			for _, v := range m.RanksMB {
				st.PeakMemoryMB = max(st.PeakMemoryMB, v)
			}
		}
	}

	recs, runID, err := ReadTimingLog(filepath.Join(dir, orchestrator.TimingFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		found = true
		st.RunID = runID
		st.Phases = summarizePhases(recs)
		for _, r := range recs {
			st.LastStep = max(st.LastStep, r.Step)
		}
	}

	if !found {
		return nil, fmt.Errorf("status: %s: %w", dir, ErrNoArtifacts)
	}
	return st, nil
}

// summarizePhases groups records by label::phase in first-seen order.
func summarizePhases(recs []TimingRecord) []PhaseSummary {
	index := make(map[string]int)
	var out []PhaseSummary
	for _, r := range recs {
		key := r.Label + "::" + r.Phase
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, PhaseSummary{Label: r.Label, Phase: r.Phase})
		}
		out[i].Steps++
		out[i].TotalAvg += r.Avg
		out[i].PeakMax = max(out[i].PeakMax, r.Max)
	}
	return out
}

// scanLines calls fn for every non-blank line of path.
func scanLines(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return scanner.Err()
}
