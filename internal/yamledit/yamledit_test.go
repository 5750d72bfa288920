package yamledit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const source = `realms:
  - name: realm_1
    mesh: tower.exo
    time_step: 0.01
  - name: realm_2
    mesh: blade.exo
output:
  frequency: 10
`

func parse(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(s), &n))
	return &n
}

func TestFindAndReplace_ScalarLeaves(t *testing.T) {
	src := parse(t, source)
	overlay := parse(t, `realms:
  - mesh: tower-fine.exo
  - name: blade
output:
  frequency: 5
`)
	require.NoError(t, FindAndReplace(src, overlay))

	var got struct {
		Realms []struct {
			Name     string  `yaml:"name"`
			Mesh     string  `yaml:"mesh"`
			TimeStep float64 `yaml:"time_step"`
		} `yaml:"realms"`
		Output struct {
			Frequency int `yaml:"frequency"`
		} `yaml:"output"`
	}
	require.NoError(t, src.Decode(&got))
	require.Len(t, got.Realms, 2)
	assert.Equal(t, "realm_1", got.Realms[0].Name)
	assert.Equal(t, "tower-fine.exo", got.Realms[0].Mesh)
	assert.Equal(t, 0.01, got.Realms[0].TimeStep)
	assert.Equal(t, "blade", got.Realms[1].Name)
	assert.Equal(t, 5, got.Output.Frequency)
}

func TestFindAndReplace_ReportsFailingPath(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		path    string
	}{
		{"missing key", "realms:\n  - label: x\n", "realms:[0]:label"},
		{"index out of range", "realms:\n  - name: a\n  - name: b\n  - name: c\n", "realms:[2]"},
		{"scalar over mapping", "output: 3\n", "output:3"},
		{"mapping over sequence", "realms:\n  name: x\n", "realms:name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FindAndReplace(parse(t, source), parse(t, tt.overlay))
			require.ErrorIs(t, err, ErrGraphMismatch)
			var mm *MismatchError
			require.True(t, errors.As(err, &mm))
			assert.Equal(t, tt.path, mm.Path)
		})
	}
}

func TestReplaceValue_FromMap(t *testing.T) {
	src := parse(t, source)
	overlay := map[string]any{
		"realms": []any{map[string]any{"time_step": 0.02}},
	}
	require.NoError(t, ReplaceValue(src, overlay))

	out, err := yaml.Marshal(src)
	require.NoError(t, err)
	assert.Contains(t, string(out), "time_step: 0.02")
	assert.Contains(t, string(out), "mesh: blade.exo")
}
