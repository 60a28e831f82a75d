package biome

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
)

func validDefinition() Definition {
	return Definition{
		Name:      "wheat-field",
		Registers: 2,
		Dt:        0.01,
		Operators: quantum.OperatorSpec{Terms: []quantum.TermSpec{
			{Kind: quantum.TermHamiltonian, Generator: "exchange", Targets: []int{0, 1}, Strength: 0.5},
			{Kind: quantum.TermDissipator, Generator: "decay", Targets: []int{0}, Strength: 0.05},
		}},
		Bindings: []BindingDef{
			{Register: 0, North: "wheat", South: "chaff"},
		},
	}
}

func TestDefinitionValidate(t *testing.T) {
	require.NoError(t, validDefinition().Validate())

	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"missing name", func(d *Definition) { d.Name = "" }},
		{"zero registers", func(d *Definition) { d.Registers = 0 }},
		{"too many registers", func(d *Definition) { d.Registers = maxRegisters + 1 }},
		{"zero dt", func(d *Definition) { d.Dt = 0 }},
		{"negative dt", func(d *Definition) { d.Dt = -0.1 }},
		{"bad operator target", func(d *Definition) { d.Operators.Terms[0].Targets = []int{0, 5} }},
		{"population count mismatch", func(d *Definition) { d.InitialPopulations = []float64{0.5} }},
		{"binding out of range", func(d *Definition) { d.Bindings[0].Register = 2 }},
		{"binding empty symbol", func(d *Definition) { d.Bindings[0].South = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)
			assert.Error(t, def.Validate())
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biomes.yaml")
	content := `biomes:
  - name: wheat-field
    registers: 2
    dt: 0.01
    operators:
      terms:
        - kind: hamiltonian
          generator: exchange
          targets: [0, 1]
          strength: 0.5
        - kind: dissipator
          generator: decay
          targets: [0]
          strength: 0.05
    bindings:
      - register: 0
        north: wheat
        south: chaff
  - name: mushroom-cavern
    registers: 1
    dt: 0.02
    initial_populations: [0.25]
    operators:
      terms:
        - kind: dissipator
          generator: dephase
          targets: [0]
          strength: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defs, err := LoadDefinitions(path)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "wheat-field", defs[0].Name)
	assert.Equal(t, 2, defs[0].Registers)
	require.Len(t, defs[0].Operators.Terms, 2)
	assert.Equal(t, quantum.TermHamiltonian, defs[0].Operators.Terms[0].Kind)
	assert.Equal(t, []int{0, 1}, defs[0].Operators.Terms[0].Targets)
	require.Len(t, defs[0].Bindings, 1)
	assert.Equal(t, "wheat", defs[0].Bindings[0].North)

	assert.Equal(t, []float64{0.25}, defs[1].InitialPopulations)
}

func TestLoadDefinitionsErrors(t *testing.T) {
	_, err := LoadDefinitions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("biomes: [:::"), 0o644))
	_, err = LoadDefinitions(path)
	assert.Error(t, err)

	// Structurally valid YAML, invalid definition.
	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("biomes:\n  - name: x\n    registers: 0\n    dt: 0.01\n"), 0o644))
	_, err = LoadDefinitions(path)
	assert.Error(t, err)
}
