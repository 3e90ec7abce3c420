package export

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Presets maps a preset name to an ordered column selection.
type Presets map[string][]string

type presetsFile struct {
	Presets map[string][]string `yaml:"presets"`
}

// LoadPresets reads a YAML presets file:
//
//	presets:
//	  recruiter: [unique_code, full_name, japanese_level, skills]
//
// An empty path returns no presets.
func LoadPresets(path string) (Presets, error) {
	if strings.TrimSpace(path) == "" {
		return Presets{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets decodes and validates preset YAML. Every key must exist in the
// enhanced catalog and every preset must select at least one column.
func ParsePresets(data []byte) (Presets, error) {
	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	out := make(Presets, len(f.Presets))
	for name, keys := range f.Presets {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("preset with empty name")
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("preset %q: %w", name, ErrNoColumns)
		}
		if err := ValidateKeys(ModeEnhanced, keys); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		out[name] = append([]string(nil), keys...)
	}
	return out, nil
}

// Names returns the preset names, sorted.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns a copy of the preset's columns.
func (p Presets) Resolve(name string) ([]string, error) {
	keys, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return append([]string(nil), keys...), nil
}
