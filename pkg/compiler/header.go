package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"hrmc/pkg/hrm"
)

const (
	memorySizePrefix = "// MEMORYSIZE "
	presetsPrefix    = "// PRESETS "

	// headerLines is how many leading lines may carry directives.
	headerLines = 2
)

var (
	intValue    = regexp2.MustCompile(`^(?:0|-?[1-9]\d*)\z`, regexp2.None)
	letterValue = regexp2.MustCompile(`^[A-Z]\z`, regexp2.None)

	ErrInvalidValue  = errors.New("invalid value")
	ErrInvalidHeader = errors.New("invalid header")
)

// Header holds the directives found at the top of a program.
//
//	// MEMORYSIZE 10
//	// PRESETS 0=A,1=E,9=0
type Header struct {
	MemorySize int // zero when absent
	Presets    map[int]hrm.Value
}

// ParseHeader reads the MEMORYSIZE and PRESETS directives from the first
// lines of src. Lines that are not directives are ignored; the lexer sees
// them as ordinary comments.
func ParseHeader(src string) (Header, error) {
	h := Header{Presets: map[int]hrm.Value{}}
	lines := strings.SplitN(src, "\n", headerLines+1)
	if len(lines) > headerLines {
		lines = lines[:headerLines]
	}
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, memorySizePrefix):
			text := strings.TrimSpace(strings.TrimPrefix(line, memorySizePrefix))
			n, err := strconv.Atoi(text)
			if err != nil || n < 1 {
				return Header{}, fmt.Errorf("%w: line %d: memory size %q", ErrInvalidHeader, i+1, text)
			}
			h.MemorySize = n
		case strings.HasPrefix(line, presetsPrefix):
			presets, err := ParsePresets(strings.TrimSpace(strings.TrimPrefix(line, presetsPrefix)))
			if err != nil {
				return Header{}, fmt.Errorf("%w: line %d: %w", ErrInvalidHeader, i+1, err)
			}
			h.Presets = presets
		}
	}
	return h, nil
}

// ParseValue reads an int ("0", "-3", "17") or a single uppercase letter.
// Leading zeros and "-0" are rejected.
func ParseValue(s string) (hrm.Value, error) {
	if ok, _ := intValue.MatchString(s); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return hrm.Value{}, fmt.Errorf("%w %q: %w", ErrInvalidValue, s, err)
		}
		return hrm.Int(n), nil
	}
	if ok, _ := letterValue.MatchString(s); ok {
		return hrm.Letter(rune(s[0])), nil
	}
	return hrm.Value{}, fmt.Errorf("%w %q", ErrInvalidValue, s)
}

// ParseValues reads a comma-separated list of values. An empty string is an
// empty list.
func ParseValues(s string) ([]hrm.Value, error) {
	if strings.TrimSpace(s) == "" {
		return []hrm.Value{}, nil
	}
	parts := strings.Split(s, ",")
	values := make([]hrm.Value, 0, len(parts))
	for _, part := range parts {
		v, err := ParseValue(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// ParsePresets reads "index=value" pairs separated by commas.
func ParsePresets(s string) (map[int]hrm.Value, error) {
	presets := map[int]hrm.Value{}
	if strings.TrimSpace(s) == "" {
		return presets, nil
	}
	for _, pair := range strings.Split(s, ",") {
		idxText, valueText, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("preset %q is not index=value", pair)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxText))
		if err != nil {
			return nil, fmt.Errorf("preset index %q: %w", idxText, err)
		}
		v, err := ParseValue(strings.TrimSpace(valueText))
		if err != nil {
			return nil, err
		}
		presets[idx] = v
	}
	return presets, nil
}
