// Package biome hosts quantum computers: one biome owns exactly one Computer
// and drives its lifecycle (construction, periodic stepping, expansion, and
// measurement requests from outer layers).
package biome

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dudecon/SpaceWheat-sub007/internal/modules/quantum"
)

// maxRegisters bounds biome definitions. The dense density matrix grows as
// 4^n, and the documented tick budget targets n <= 5; ten registers (16 MB of
// state) is already well past anything the game layer asks for.
const maxRegisters = 10

// BindingDef declares an initial axis binding.
type BindingDef struct {
	Register int    `yaml:"register" json:"register"`
	North    string `yaml:"north" json:"north"`
	South    string `yaml:"south" json:"south"`
}

// Definition is the declarative, loaded-once configuration of one biome.
type Definition struct {
	Name               string               `yaml:"name" json:"name"`
	Registers          int                  `yaml:"registers" json:"registers"`
	Dt                 float64              `yaml:"dt" json:"dt"`
	Operators          quantum.OperatorSpec `yaml:"operators" json:"operators"`
	Bindings           []BindingDef         `yaml:"bindings" json:"bindings"`
	InitialPopulations []float64            `yaml:"initial_populations" json:"initial_populations,omitempty"`
}

// Validate checks the definition before a biome is constructed from it.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("biome definition missing name")
	}
	if d.Registers <= 0 || d.Registers > maxRegisters {
		return fmt.Errorf("biome %q: register count %d outside 1..%d", d.Name, d.Registers, maxRegisters)
	}
	if d.Dt <= 0 {
		return fmt.Errorf("biome %q: dt must be positive, got %v", d.Name, d.Dt)
	}
	if err := d.Operators.Validate(d.Registers); err != nil {
		return fmt.Errorf("biome %q: %w", d.Name, err)
	}
	if d.InitialPopulations != nil && len(d.InitialPopulations) != d.Registers {
		return fmt.Errorf("biome %q: %d initial populations for %d registers",
			d.Name, len(d.InitialPopulations), d.Registers)
	}
	for _, b := range d.Bindings {
		if b.Register < 0 || b.Register >= d.Registers {
			return fmt.Errorf("biome %q: binding register %d outside 0..%d", d.Name, b.Register, d.Registers-1)
		}
		if b.North == "" || b.South == "" {
			return fmt.Errorf("biome %q: binding for register %d has empty symbol", d.Name, b.Register)
		}
	}
	return nil
}

// definitionsFile is the on-disk YAML layout.
type definitionsFile struct {
	Biomes []Definition `yaml:"biomes"`
}

// LoadDefinitions reads biome definitions from a YAML file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read biome definitions: %w", err)
	}
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse biome definitions: %w", err)
	}
	for _, def := range file.Biomes {
		if err := def.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Biomes, nil
}

// Snapshot is the cached per-tick view of a biome, refreshed once per step
// so read paths (visualization, handlers) are O(1) lookups instead of
// repeated partial-trace computation.
type Snapshot struct {
	BiomeID     string    `json:"biome_id"`
	Name        string    `json:"name"`
	Tick        uint64    `json:"tick"`
	Registers   int       `json:"registers"`
	Purity      float64   `json:"purity"`
	Populations []float64 `json:"populations"`
	Failed      bool      `json:"failed"`
	CapturedAt  time.Time `json:"captured_at"`
}
