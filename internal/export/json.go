package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dusk-indust/oversetsim/internal/orchestrator"
	"github.com/dusk-indust/oversetsim/internal/status"
)

// RunExport is the top-level JSON export structure.
type RunExport struct {
	RunID        string        `json:"runId,omitempty"`
	Dir          string        `json:"dir"`
	ExportedAt   string        `json:"exportedAt"`
	LastStep     int           `json:"lastStep"`
	Ranks        int           `json:"ranks,omitempty"`
	PeakMemoryMB int64         `json:"peakMemoryMB,omitempty"`
	Phases       []PhaseExport `json:"phases,omitempty"`
	Memory       []StepMemory  `json:"memory,omitempty"`
}

// PhaseExport describes one timed phase over the whole run.
type PhaseExport struct {
	Label        string  `json:"label"`
	Phase        string  `json:"phase"`
	Steps        int     `json:"steps"`
	TotalSeconds float64 `json:"totalSeconds"`
	PeakSeconds  float64 `json:"peakSeconds"`
}

// StepMemory is the per-rank memory usage of one step.
type StepMemory struct {
	Step    int     `json:"step"`
	RanksMB []int64 `json:"ranksMB"`
}

// ExportRun builds a RunExport from the artifacts in dir.
func ExportRun(dir string) (*RunExport, error) {
	st, err := status.Summarize(dir)
	if err != nil {
		return nil, err
	}

	export := &RunExport{
		RunID:        st.RunID,
		Dir:          dir,
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		LastStep:     st.LastStep,
		Ranks:        st.Ranks,
		PeakMemoryMB: st.PeakMemoryMB,
	}
	for _, p := range st.Phases {
		export.Phases = append(export.Phases, PhaseExport{
			Label:        p.Label,
			Phase:        p.Phase,
			Steps:        p.Steps,
			TotalSeconds: p.TotalAvg,
			PeakSeconds:  p.PeakMax,
		})
	}

	// The memory log is optional; Summarize already accepted its absence.
	mem, err := status.ReadMemoryLog(filepath.Join(dir, orchestrator.MemoryFile))
	if err == nil {
		for _, m := range mem {
			export.Memory = append(export.Memory, StepMemory{Step: m.Step, RanksMB: m.RanksMB})
		}
	}

	return export, nil
}

// Write encodes e as indented JSON.
func (e *RunExport) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}
