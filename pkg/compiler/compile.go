package compiler

import (
	"fmt"

	"hrmc/pkg/hrm"
)

// Option adjusts a single Compile call.
type Option func(*options)

type options struct {
	memorySize int
	presets    map[int]hrm.Value
	noOptimize bool
}

// WithMemorySize overrides the MEMORYSIZE header.
func WithMemorySize(n int) Option {
	return func(o *options) { o.memorySize = n }
}

// WithPresets overrides the PRESETS header.
func WithPresets(presets map[int]hrm.Value) Option {
	return func(o *options) { o.presets = presets }
}

// WithoutOptimization leaves Program identical to Raw.
func WithoutOptimization() Option {
	return func(o *options) { o.noOptimize = true }
}

// Result is everything Compile produced.
type Result struct {
	Program []hrm.Instruction // optimized unless WithoutOptimization was given
	Raw     []hrm.Instruction // straight from the generator
	Slots   map[string]int    // variable -> memory cell
	Header  Header            // effective memory size and presets
	Tree    []Stmt
}

func Compile(src string, opts ...Option) (*Result, error) {
	header, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.memorySize != 0 {
		header.MemorySize = o.memorySize
	}
	if o.presets != nil {
		header.Presets = o.presets
	}
	if header.MemorySize == 0 {
		return nil, fmt.Errorf("%w: must specify memory size", ErrInvalidMemorySize)
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("lex error: %w", err)
	}

	stmts, err := Parse(tokens, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	raw, slots, err := GenerateWithSlots(stmts, header.Presets, header.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("codegen error: %w", err)
	}

	program := raw
	if !o.noOptimize {
		program = Optimize(raw)
	}

	return &Result{
		Program: program,
		Raw:     raw,
		Slots:   slots,
		Header:  header,
		Tree:    stmts,
	}, nil
}
