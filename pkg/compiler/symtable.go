package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"hrmc/pkg/hrm"
)

var (
	ErrUndefinedVariable = errors.New("not defined before use")
	ErrNotInPresets      = errors.New("is not in presets")
	ErrOutOfSlots        = errors.New("could not allocate enough variables")
	ErrInvalidMemorySize = errors.New("invalid memory size")
	ErrPresetOutOfRange  = errors.New("preset outside memory")
)

// SymbolTable maps variable names to memory slots and literal values to the
// preset cells that hold them.
//
// Cells not claimed by a preset form the free pool. Both variables and
// temporaries are taken from the highest free index downward, which leaves
// low indices free for programs that treat them as an array.
//
// A slot once lent as a temporary never becomes a variable: inside a loop
// the spill that used it runs again after any later definition.
type SymbolTable struct {
	vars      map[string]int
	constants map[hrm.Value]int
	free      []int // ascending; the next slot handed out is the last element
	temps     []int // released temporaries, ascending
}

// NewSymbolTable builds the slot and constant pools for a memory of
// memorySize cells with presets already in place.
func NewSymbolTable(presets map[int]hrm.Value, memorySize int) (*SymbolTable, error) {
	if memorySize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMemorySize, memorySize)
	}

	indices := make([]int, 0, len(presets))
	for idx := range presets {
		if idx < 0 || idx >= memorySize {
			return nil, fmt.Errorf("%w: cell %d with %d cells", ErrPresetOutOfRange, idx, memorySize)
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	s := &SymbolTable{
		vars:      make(map[string]int),
		constants: make(map[hrm.Value]int, len(presets)),
		free:      make([]int, 0, memorySize-len(presets)),
	}
	// Lowest index wins when a value is preset more than once.
	for _, idx := range indices {
		v := presets[idx]
		if _, seen := s.constants[v]; !seen {
			s.constants[v] = idx
		}
	}
	for idx := 0; idx < memorySize; idx++ {
		if _, taken := presets[idx]; !taken {
			s.free = append(s.free, idx)
		}
	}
	return s, nil
}

// Lookup returns the slot of a variable that has already been written.
func (s *SymbolTable) Lookup(name string) (int, error) {
	slot, ok := s.vars[name]
	if !ok {
		return 0, fmt.Errorf("variable %s %w", name, ErrUndefinedVariable)
	}
	return slot, nil
}

// Define returns the slot for name, allocating one on first use.
func (s *SymbolTable) Define(name string) (int, error) {
	if slot, ok := s.vars[name]; ok {
		return slot, nil
	}
	slot, err := s.take()
	if err != nil {
		return 0, err
	}
	s.vars[name] = slot
	return slot, nil
}

// Borrow hands out a temporary slot, preferring one released earlier. It
// must be returned with Release as soon as the value it holds has been
// consumed.
func (s *SymbolTable) Borrow() (int, error) {
	if n := len(s.temps); n > 0 {
		slot := s.temps[n-1]
		s.temps = s.temps[:n-1]
		return slot, nil
	}
	return s.take()
}

// Release returns a borrowed slot for use by later temporaries only.
func (s *SymbolTable) Release(slot int) {
	i := sort.SearchInts(s.temps, slot)
	s.temps = append(s.temps, 0)
	copy(s.temps[i+1:], s.temps[i:])
	s.temps[i] = slot
}

func (s *SymbolTable) take() (int, error) {
	if len(s.free) == 0 {
		return 0, ErrOutOfSlots
	}
	slot := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]
	return slot, nil
}

// Constant returns the preset cell holding v.
func (s *SymbolTable) Constant(v hrm.Value) (int, error) {
	idx, ok := s.constants[v]
	if !ok {
		return 0, fmt.Errorf("literal %s %w", v, ErrNotInPresets)
	}
	return idx, nil
}

// Slots returns a copy of the variable-to-slot assignments.
func (s *SymbolTable) Slots() map[string]int {
	out := make(map[string]int, len(s.vars))
	for name, slot := range s.vars {
		out[name] = slot
	}
	return out
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.vars) > 0 {
		sb.WriteString("Variables:\n")
		names := make([]string, 0, len(s.vars))
		for name := range s.vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %-20s  Slot: %d\n", name, s.vars[name])
		}
	} else {
		sb.WriteString("Variables: (empty)\n")
	}

	if len(s.constants) > 0 {
		sb.WriteString("Constants:\n")
		values := make([]hrm.Value, 0, len(s.constants))
		for v := range s.constants {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool { return s.constants[values[i]] < s.constants[values[j]] })
		for _, v := range values {
			fmt.Fprintf(&sb, "  %-20s  Cell: %d\n", v, s.constants[v])
		}
	}
	fmt.Fprintf(&sb, "Free: %v\n", s.free)
	if len(s.temps) > 0 {
		fmt.Fprintf(&sb, "Temporaries: %v\n", s.temps)
	}
	return sb.String()
}
