// Package surrogate provides stand-in solver engines that honour the full
// coupling lifecycle without any physics. They read a small YAML input,
// register their meshes and fields with the connectivity backend, spend a
// configurable amount of time per step and keep their process group in
// lock-step, which is enough to exercise the orchestrator end to end.
package surrogate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/oversetsim/internal/yamledit"
)

// Input is the part of a solver input file the surrogates read. Unknown keys
// are ignored, so real solver inputs can be used as-is.
type Input struct {
	StartStep        int           `yaml:"start_step"`
	MeshMotion       bool          `yaml:"mesh_motion"`
	OversetInterval  int           `yaml:"overset_interval"`
	FieldComponents  int           `yaml:"field_components"`
	AdaptiveTimestep bool          `yaml:"adaptive_timestep"`
	Levels           int           `yaml:"levels"`
	Work             time.Duration `yaml:"work"`
}

// LoadInput reads path, applies overrides (which must mirror the file's
// structure) and decodes the result.
func LoadInput(path string, overrides map[string]any) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("surrogate: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Input{}, fmt.Errorf("surrogate: parse %s: %w", path, err)
	}
	if len(overrides) > 0 {
		if err := yamledit.ReplaceValue(&doc, overrides); err != nil {
			return Input{}, fmt.Errorf("surrogate: %s: %w", path, err)
		}
	}
	var in Input
	if len(doc.Content) > 0 {
		if err := doc.Decode(&in); err != nil {
			return Input{}, fmt.Errorf("surrogate: decode %s: %w", path, err)
		}
	}
	if in.FieldComponents < 1 {
		in.FieldComponents = 1
	}
	if in.Levels < 1 {
		in.Levels = 1
	}
	return in, nil
}
