// Package level loads puzzle descriptions from YAML:
//
//	name: Vowel Incinerator
//	memory_size: 10
//	presets: {0: A, 1: E, 5: 0}
//	inbox: [O, L, D]
//	outbox: [L, D]
//
// Values use the same literal syntax as program headers. The outbox is
// optional; without it a level only describes what to feed the machine.
package level

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hrmc/pkg/compiler"
	"hrmc/pkg/hrm"
)

var (
	ErrInvalidLevel   = errors.New("invalid level")
	ErrOutboxMismatch = errors.New("outbox mismatch")
)

type Level struct {
	Name       string
	MemorySize int
	Presets    map[int]hrm.Value
	Inbox      []hrm.Value
	Outbox     []hrm.Value // nil when the level has no expectation
}

// value decodes a scalar node with compiler.ParseValue.
type value struct{ hrm.Value }

func (v *value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a value", node.Line)
	}
	parsed, err := compiler.ParseValue(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	v.Value = parsed
	return nil
}

type file struct {
	Name       string        `yaml:"name"`
	MemorySize int           `yaml:"memory_size"`
	Presets    map[int]value `yaml:"presets"`
	Inbox      []value       `yaml:"inbox"`
	Outbox     *[]value      `yaml:"outbox"`
}

func values(in []value) []hrm.Value {
	out := make([]hrm.Value, len(in))
	for i, v := range in {
		out[i] = v.Value
	}
	return out
}

// Parse decodes a level and checks that its presets fit in memory.
func Parse(data []byte) (*Level, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	if f.MemorySize < 1 {
		return nil, fmt.Errorf("%w: memory_size must be at least 1", ErrInvalidLevel)
	}

	lvl := &Level{
		Name:       f.Name,
		MemorySize: f.MemorySize,
		Presets:    make(map[int]hrm.Value, len(f.Presets)),
		Inbox:      values(f.Inbox),
	}
	for idx, v := range f.Presets {
		if idx < 0 || idx >= f.MemorySize {
			return nil, fmt.Errorf("%w: preset %d outside memory of size %d", ErrInvalidLevel, idx, f.MemorySize)
		}
		lvl.Presets[idx] = v.Value
	}
	if f.Outbox != nil {
		lvl.Outbox = values(*f.Outbox)
	}
	return lvl, nil
}

// Load reads and parses the level file at path.
func Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lvl, nil
}

// HasExpectation reports whether the level names an expected outbox.
func (l *Level) HasExpectation() bool { return l.Outbox != nil }

// Check compares an actual outbox against the expected one. The error
// names the first position that differs.
func (l *Level) Check(got []hrm.Value) error {
	if !l.HasExpectation() {
		return nil
	}
	for i := 0; i < len(got) && i < len(l.Outbox); i++ {
		if got[i] != l.Outbox[i] {
			return fmt.Errorf("%w: position %d: got %s, want %s", ErrOutboxMismatch, i, got[i], l.Outbox[i])
		}
	}
	if len(got) != len(l.Outbox) {
		return fmt.Errorf("%w: got %d values, want %d", ErrOutboxMismatch, len(got), len(l.Outbox))
	}
	return nil
}
