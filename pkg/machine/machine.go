package machine

import (
	"fmt"

	"hrmc/pkg/hrm"
)

const (
	// DefaultMemorySize is more lenient than any level of the game.
	DefaultMemorySize = 100
	// DefaultMaxSteps bounds a run that never consumes input.
	DefaultMaxSteps = 10000
)

// Option configures a Machine.
type Option func(*Machine)

// WithMemorySize sets the number of memory cells.
func WithMemorySize(n int) Option {
	return func(m *Machine) { m.memorySize = n }
}

// WithMaxSteps sets the step ceiling after which execution aborts.
func WithMaxSteps(n int) Option {
	return func(m *Machine) { m.maxSteps = n }
}

// WithTracer installs a tracer that observes every executed instruction.
func WithTracer(t Tracer) Option {
	return func(m *Machine) { m.tracer = t }
}

// Machine executes a validated program. It keeps no state between calls to
// Execute, so a single Machine may be run against many inboxes.
type Machine struct {
	program    []hrm.Instruction
	presets    map[int]hrm.Value
	labels     map[int]int // label id -> position in program
	memorySize int
	maxSteps   int
	tracer     Tracer
}

// New validates program and returns a Machine ready to execute it. Every
// opcode must be known, labels must be unique and every jump must name an
// existing label.
func New(program []hrm.Instruction, presets map[int]hrm.Value, opts ...Option) (*Machine, error) {
	m := &Machine{
		program:    append([]hrm.Instruction(nil), program...),
		presets:    make(map[int]hrm.Value, len(presets)),
		labels:     make(map[int]int),
		memorySize: DefaultMemorySize,
		maxSteps:   DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.memorySize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadMemorySize, m.memorySize)
	}
	if m.maxSteps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadMaxSteps, m.maxSteps)
	}

	for idx, v := range presets {
		if idx < 0 || idx >= m.memorySize {
			return nil, fmt.Errorf("%w: cell %d with %d cells", ErrBadPreset, idx, m.memorySize)
		}
		m.presets[idx] = v
	}

	for pos, in := range m.program {
		if !in.Op.Valid() {
			return nil, fmt.Errorf("%w at %d: %v", ErrUnknownOpcode, pos, in.Op)
		}
		if !in.IsLabel() {
			continue
		}
		if _, dup := m.labels[in.Target]; dup {
			return nil, fmt.Errorf("%w: label %s appears twice", ErrDuplicateLabel, hrm.LabelName(in.Target))
		}
		m.labels[in.Target] = pos
	}
	for _, in := range m.program {
		if !in.HasTarget() {
			continue
		}
		if _, ok := m.labels[in.Target]; !ok {
			return nil, fmt.Errorf("%w: unknown label %s", ErrUnknownLabel, hrm.LabelName(in.Target))
		}
	}

	return m, nil
}

// Run is shorthand for New followed by Execute.
func Run(program []hrm.Instruction, presets map[int]hrm.Value, inbox []hrm.Value, opts ...Option) ([]hrm.Value, error) {
	m, err := New(program, presets, opts...)
	if err != nil {
		return nil, err
	}
	return m.Execute(inbox)
}

// cell is an optional value: a memory cell or the register.
type cell struct {
	value hrm.Value
	full  bool
}

// state is the working set of one Execute call.
type state struct {
	m        *Machine
	memory   []cell
	register cell
	inbox    []hrm.Value
	outbox   []hrm.Value
	pc       int
}

// Execute runs the program against inbox and returns the outbox. Running out
// of input at an INBOX, or running off the end of the program, halts cleanly.
// Any other failure discards the partial outbox and returns a *RuntimeError.
func (m *Machine) Execute(inbox []hrm.Value) ([]hrm.Value, error) {
	s := &state{
		m:      m,
		memory: make([]cell, m.memorySize),
		inbox:  inbox,
		outbox: []hrm.Value{},
	}
	for idx, v := range m.presets {
		s.memory[idx] = cell{value: v, full: true}
	}

	steps := 0
	for s.pc < len(m.program) {
		steps++
		if steps > m.maxSteps {
			return nil, s.fail(ErrMaxSteps, "exceeded %d steps, infinite loop?", m.maxSteps)
		}

		in := m.program[s.pc]
		if m.tracer != nil {
			m.tracer.Step(Step{
				Count:       steps,
				PC:          s.pc,
				Instruction: in,
				Register:    s.register.value,
				HasRegister: s.register.full,
			})
		}

		halted, err := s.step(in)
		if err != nil {
			return nil, err
		}
		if halted {
			break
		}
	}
	return s.outbox, nil
}

// step executes one instruction and advances pc. halted is true when the
// inbox ran dry.
func (s *state) step(in hrm.Instruction) (halted bool, err error) {
	next := s.pc + 1

	switch in.Op {
	case hrm.OpInbox:
		if len(s.inbox) == 0 {
			return true, nil
		}
		s.register = cell{value: s.inbox[0], full: true}
		s.inbox = s.inbox[1:]

	case hrm.OpOutbox:
		if !s.register.full {
			return false, s.fail(ErrEmptyRegister, "tried to outbox nothing")
		}
		s.outbox = append(s.outbox, s.register.value)
		s.register = cell{}

	case hrm.OpCopyFrom:
		v, err := s.read(in.Ref, "tried to read empty cell %s")
		if err != nil {
			return false, err
		}
		s.register = cell{value: v, full: true}

	case hrm.OpCopyTo:
		if !s.register.full {
			return false, s.fail(ErrEmptyRegister, "tried to write empty register")
		}
		if err := s.write(in.Ref, s.register.value); err != nil {
			return false, err
		}

	case hrm.OpAdd, hrm.OpSub:
		if !s.register.full {
			return false, s.fail(ErrEmptyRegister, "tried to %s with empty register", in.Op)
		}
		operand, err := s.read(in.Ref, "cannot "+in.Op.String()+" empty %s")
		if err != nil {
			return false, err
		}
		var result hrm.Value
		if in.Op == hrm.OpAdd {
			result, err = s.register.value.Add(operand)
		} else {
			result, err = s.register.value.Sub(operand)
		}
		if err != nil {
			return false, s.wrap(err)
		}
		s.register = cell{value: result, full: true}

	case hrm.OpBumpUp, hrm.OpBumpDown:
		original, err := s.read(in.Ref, "cannot bump empty %s")
		if err != nil {
			return false, err
		}
		var bumped hrm.Value
		if in.Op == hrm.OpBumpUp {
			bumped, err = original.Add(hrm.Int(1))
		} else {
			bumped, err = original.Sub(hrm.Int(1))
		}
		if err != nil {
			return false, s.wrap(err)
		}
		if err := s.write(in.Ref, bumped); err != nil {
			return false, err
		}
		s.register = cell{value: bumped, full: true}

	case hrm.OpLabel:

	case hrm.OpJump:
		next = s.m.labels[in.Target]

	case hrm.OpJumpIfZero, hrm.OpJumpIfNegative:
		// A letter in the register is valid here; the test is simply false.
		if !s.register.full {
			return false, s.fail(ErrEmptyRegister, "can't conditional-jump with empty register")
		}
		if n, ok := s.register.value.AsInt(); ok {
			if (in.Op == hrm.OpJumpIfZero && n == 0) || (in.Op == hrm.OpJumpIfNegative && n < 0) {
				next = s.m.labels[in.Target]
			}
		}

	default:
		return false, s.fail(ErrUnknownOpcode, "unknown instruction %v", in.Op)
	}

	s.pc = next
	return false, nil
}

// resolve turns ref into a concrete cell index.
func (s *state) resolve(ref hrm.MemRef) (int, error) {
	idx := ref.Index
	if idx < 0 || idx >= len(s.memory) {
		return 0, s.fail(ErrAddressOutOfRange, "cell %s is outside memory of %d cells", ref, len(s.memory))
	}
	if !ref.IsDereference() {
		return idx, nil
	}

	pointer := s.memory[idx]
	n, ok := pointer.value.AsInt()
	if !pointer.full || !ok {
		return 0, s.fail(ErrBadDereference, "cannot dereference empty or non-int cell %s", ref)
	}
	if n < 0 || n >= len(s.memory) {
		return 0, s.fail(ErrAddressOutOfRange, "%s points at cell %d, outside memory of %d cells", ref, n, len(s.memory))
	}
	return n, nil
}

// read returns the value at ref. emptyFormat receives ref when the cell is empty.
func (s *state) read(ref hrm.MemRef, emptyFormat string) (hrm.Value, error) {
	idx, err := s.resolve(ref)
	if err != nil {
		return hrm.Value{}, err
	}
	c := s.memory[idx]
	if !c.full {
		return hrm.Value{}, s.fail(ErrEmptyCell, emptyFormat, ref)
	}
	return c.value, nil
}

func (s *state) write(ref hrm.MemRef, v hrm.Value) error {
	idx, err := s.resolve(ref)
	if err != nil {
		return err
	}
	s.memory[idx] = cell{value: v, full: true}
	return nil
}

func (s *state) fail(sentinel error, format string, args ...any) error {
	return &RuntimeError{
		PC:          s.pc,
		Instruction: s.m.program[s.pc],
		Msg:         fmt.Sprintf(format, args...),
		Err:         sentinel,
	}
}

func (s *state) wrap(err error) error {
	return &RuntimeError{
		PC:          s.pc,
		Instruction: s.m.program[s.pc],
		Msg:         err.Error(),
		Err:         err,
	}
}
