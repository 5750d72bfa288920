package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMissingKey is returned when a required key of the exawind document is
// absent or empty.
var ErrMissingKey = errors.New("missing required key")

// Exawind holds the coupled-run settings loaded from the exawind section of
// an input file.
type Exawind struct {
	AMRWindInput               string           `yaml:"amr_wind_inp,omitempty"`
	NaluWindInputs             StringList       `yaml:"nalu_wind_inp"`
	NaluVars                   []string         `yaml:"nalu_vars"`
	AMRCellVars                []string         `yaml:"amr_cell_vars,omitempty"`
	AMRNodeVars                []string         `yaml:"amr_node_vars,omitempty"`
	NumTimesteps               *int             `yaml:"num_timesteps"`
	AdditionalPicardIterations int              `yaml:"additional_picard_iterations,omitempty"`
	NonlinearIterations        int              `yaml:"nonlinear_iterations,omitempty"`
	NaluReplaceInputs          []map[string]any `yaml:"nalu_replace_inputs,omitempty"`
}

type document struct {
	Exawind *Exawind `yaml:"exawind"`
}

// UseAMR reports whether an AMR solver takes part in the run.
func (e *Exawind) UseAMR() bool { return e.AMRWindInput != "" }

// Steps returns the number of time steps to run.
func (e *Exawind) Steps() int {
	if e.NumTimesteps == nil {
		return 0
	}
	return *e.NumTimesteps
}

// Overrides returns the replacement document for the i-th unstructured
// solver, or nil when none was given.
func (e *Exawind) Overrides(i int) map[string]any {
	if i < 0 || i >= len(e.NaluReplaceInputs) {
		return nil
	}
	return e.NaluReplaceInputs[i]
}

// Load reads the input file at path. Relative solver input paths are
// resolved against the directory holding path.
func Load(path string) (*Exawind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	cfg.AMRWindInput = resolve(dir, cfg.AMRWindInput)
	for i, p := range cfg.NaluWindInputs {
		cfg.NaluWindInputs[i] = resolve(dir, p)
	}
	return cfg, nil
}

// Parse decodes and validates an input document.
func Parse(data []byte) (*Exawind, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Exawind == nil {
		return nil, fmt.Errorf("exawind: %w", ErrMissingKey)
	}
	cfg := doc.Exawind
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.NonlinearIterations < 1 {
		cfg.NonlinearIterations = 1
	}
	return cfg, nil
}

func (e *Exawind) validate() error {
	switch {
	case len(e.NaluWindInputs) == 0:
		return fmt.Errorf("exawind.nalu_wind_inp: %w", ErrMissingKey)
	case len(e.NaluVars) == 0:
		return fmt.Errorf("exawind.nalu_vars: %w", ErrMissingKey)
	case e.NumTimesteps == nil:
		return fmt.Errorf("exawind.num_timesteps: %w", ErrMissingKey)
	case *e.NumTimesteps < 0:
		return fmt.Errorf("exawind.num_timesteps: negative value %d", *e.NumTimesteps)
	case e.AdditionalPicardIterations < 0:
		return fmt.Errorf("exawind.additional_picard_iterations: negative value %d", e.AdditionalPicardIterations)
	case len(e.NaluReplaceInputs) > len(e.NaluWindInputs):
		return fmt.Errorf("exawind.nalu_replace_inputs: %d entries for %d solvers",
			len(e.NaluReplaceInputs), len(e.NaluWindInputs))
	}
	if e.UseAMR() {
		if len(e.AMRCellVars) == 0 {
			return fmt.Errorf("exawind.amr_cell_vars: %w", ErrMissingKey)
		}
		if len(e.AMRNodeVars) == 0 {
			return fmt.Errorf("exawind.amr_node_vars: %w", ErrMissingKey)
		}
	}
	return nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// StringList decodes either a single string or a sequence of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var ss []string
	if err := n.Decode(&ss); err != nil {
		return err
	}
	*l = ss
	return nil
}
