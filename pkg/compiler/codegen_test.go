package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"hrmc/pkg/hrm"
	"hrmc/pkg/machine"
)

var (
	fixed = hrm.FixedAddr
	deref = hrm.Dereference
)

func generate(t *testing.T, src string, presets map[int]hrm.Value, memorySize int) ([]hrm.Instruction, error) {
	t.Helper()
	stmts, err := parse(t, src)
	require.NoError(t, err)
	return Generate(stmts, presets, memorySize)
}

func withoutLabels(program []hrm.Instruction) []hrm.Instruction {
	var out []hrm.Instruction
	for _, in := range program {
		if !in.IsLabel() {
			out = append(out, in)
		}
	}
	return out
}

func requireProgram(t *testing.T, want, got []hrm.Instruction) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("program mismatch (-want +got):\n%s\ngot:\n%s", diff, hrm.Render(got, nil))
	}
}

func TestGenerate_MultipleTemps(t *testing.T) {
	stmts := []Stmt{
		&OutboxStmt{Value: &BinaryExpr{
			Op:    PLUS,
			Left:  &BinaryExpr{Op: PLUS, Left: &InboxExpr{}, Right: &InboxExpr{}},
			Right: &InboxExpr{},
		}},
	}

	got, err := Generate(stmts, nil, 10)
	require.NoError(t, err)

	requireProgram(t, []hrm.Instruction{
		hrm.Inbox(),
		hrm.CopyTo(fixed(9)),
		hrm.Inbox(),
		hrm.CopyTo(fixed(8)),
		hrm.Inbox(),
		hrm.Add(fixed(8)),
		hrm.Add(fixed(9)),
		hrm.Outbox(),
	}, withoutLabels(got))
}

func TestGenerate_Errors(t *testing.T) {
	zero := map[int]hrm.Value{0: hrm.Int(0)}
	tests := []struct {
		name       string
		src        string
		presets    map[int]hrm.Value
		memorySize int
		wantErr    error
		wantMsg    string
	}{
		{"Undefined Variable", "a = b", nil, 10, ErrUndefinedVariable, "variable b not defined before use"},
		{"Self Assignment", "a = a", nil, 10, ErrUndefinedVariable, "variable a not defined before use"},
		{"Undefined Pointer", "outbox(*p)", nil, 10, ErrUndefinedVariable, "variable p not defined before use"},
		{"Undefined Bump", "++x", nil, 10, ErrUndefinedVariable, "variable x not defined before use"},
		{"Undefined Operand", "outbox(inbox() - y)", nil, 10, ErrUndefinedVariable, "variable y not defined before use"},
		{"Int Not In Presets", "outbox(123)", nil, 10, ErrNotInPresets, "literal 123 is not in presets"},
		{"Letter Not In Presets", "outbox('Q')", zero, 10, ErrNotInPresets, "literal Q is not in presets"},
		{"Nonzero Compare Needs Preset", "a = inbox() if (a == 5) { }", zero, 10, ErrNotInPresets, "literal 5 is not in presets"},
		{"Break Outside Loop", "while { } break", nil, 10, ErrBreakOutsideLoop, "break outside of a loop"},
		{"Continue Outside Loop", "if (inbox() == 0) { continue }", nil, 10, ErrContinueOutsideLoop, "continue outside of a loop"},
		{"Out Of Slots", "a = inbox() b = inbox()", zero, 2, ErrOutOfSlots, "could not allocate enough variables"},
		{"No Room For Temporary", "outbox(inbox() + inbox())", zero, 1, ErrOutOfSlots, "could not allocate enough variables"},
		{"Zero Memory", "outbox(inbox())", nil, 0, ErrInvalidMemorySize, ""},
		{"Preset Outside Memory", "outbox(inbox())", map[int]hrm.Value{10: hrm.Int(1)}, 10, ErrPresetOutOfRange, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generate(t, tt.src, tt.presets, tt.memorySize)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.EqualError(t, err, tt.wantMsg)
			}
		})
	}
}

func TestGenerate_Lowering(t *testing.T) {
	const (
		terminate = 0
		a         = 9
		b         = 8
	)
	tests := []struct {
		name    string
		src     string
		presets map[int]hrm.Value
		want    []hrm.Instruction
	}{
		{
			name: "Return Jumps To Terminate",
			src:  "return outbox(inbox())",
			want: []hrm.Instruction{
				hrm.Jump(terminate),
				hrm.Inbox(),
				hrm.Outbox(),
				hrm.Label(terminate),
			},
		},
		{
			name: "If Equal Zero Skips Subtraction",
			src:  "a = inbox() if (a == 0) { outbox(a) }",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.CopyFrom(fixed(a)),
				hrm.JumpIfZero(1),
				hrm.Jump(2),
				hrm.Label(1),
				hrm.CopyFrom(fixed(a)), hrm.Outbox(),
				hrm.Jump(3),
				hrm.Label(2),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name: "If Else Not Equal Negates",
			src:  "a = inbox() b = inbox() if (a != b) { outbox(a) } else { outbox(b) }",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.Inbox(), hrm.CopyTo(fixed(b)),
				hrm.CopyFrom(fixed(a)), hrm.Sub(fixed(b)),
				hrm.JumpIfZero(2),
				hrm.Jump(1),
				hrm.Label(1),
				hrm.CopyFrom(fixed(a)), hrm.Outbox(),
				hrm.Jump(3),
				hrm.Label(2),
				hrm.CopyFrom(fixed(b)), hrm.Outbox(),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name: "Less Or Equal Swaps Operands",
			src:  "a = inbox() b = inbox() if (a <= b) { }",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.Inbox(), hrm.CopyTo(fixed(b)),
				hrm.CopyFrom(fixed(b)), hrm.Sub(fixed(a)),
				hrm.JumpIfNegative(2),
				hrm.Jump(1),
				hrm.Label(1),
				hrm.Jump(3),
				hrm.Label(2),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name: "And Short Circuits",
			src:  "a = inbox() if (a == 0 && a == 0) { }",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.CopyFrom(fixed(a)), hrm.JumpIfZero(4), hrm.Jump(2),
				hrm.Label(4),
				hrm.CopyFrom(fixed(a)), hrm.JumpIfZero(1), hrm.Jump(2),
				hrm.Label(1),
				hrm.Jump(3),
				hrm.Label(2),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name: "Or Short Circuits",
			src:  "a = inbox() if (a == 0 || a == 0) { }",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.CopyFrom(fixed(a)), hrm.JumpIfZero(1), hrm.Jump(4),
				hrm.Label(4),
				hrm.CopyFrom(fixed(a)), hrm.JumpIfZero(1), hrm.Jump(2),
				hrm.Label(1),
				hrm.Jump(3),
				hrm.Label(2),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name: "While With Condition",
			src:  "a = inbox() b = inbox() while (a < b) { continue }",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.Inbox(), hrm.CopyTo(fixed(b)),
				hrm.Label(2),
				hrm.CopyFrom(fixed(a)), hrm.Sub(fixed(b)),
				hrm.JumpIfNegative(1),
				hrm.Jump(3),
				hrm.Label(1),
				hrm.Jump(2),
				hrm.Jump(2),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name: "Infinite While With Break",
			src:  "while { outbox(inbox()) break }",
			want: []hrm.Instruction{
				hrm.Label(1),
				hrm.Inbox(), hrm.Outbox(),
				hrm.Jump(3),
				hrm.Jump(1),
				hrm.Label(3),
				hrm.Label(terminate),
			},
		},
		{
			name:    "Literal Operand Is Addressed Directly",
			src:     "a = inbox() outbox(a + 1)",
			presets: map[int]hrm.Value{0: hrm.Int(1)},
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.CopyFrom(fixed(a)), hrm.Add(fixed(0)), hrm.Outbox(),
				hrm.Label(terminate),
			},
		},
		{
			name: "Bump Operand Is Addressed Directly",
			src:  "a = inbox() b = inbox() outbox(a - --b)",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.Inbox(), hrm.CopyTo(fixed(b)),
				hrm.BumpDown(fixed(b)),
				hrm.CopyFrom(fixed(a)), hrm.Sub(fixed(b)), hrm.Outbox(),
				hrm.Label(terminate),
			},
		},
		{
			name: "Memory Operands Dereference",
			src:  "p = inbox() *p = inbox() outbox(*p + *p) ++*p",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.Inbox(), hrm.CopyTo(deref(a)),
				hrm.CopyFrom(deref(a)), hrm.Add(deref(a)), hrm.Outbox(),
				hrm.BumpUp(deref(a)),
				hrm.Label(terminate),
			},
		},
		{
			name: "Assignment Operand Reuses Variable Slot",
			src:  "outbox(inbox() + (x = inbox()))",
			want: []hrm.Instruction{
				hrm.Inbox(), hrm.CopyTo(fixed(a)),
				hrm.Inbox(), hrm.Add(fixed(a)), hrm.Outbox(),
				hrm.Label(terminate),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := generate(t, tt.src, tt.presets, 10)
			require.NoError(t, err)
			requireProgram(t, tt.want, got)
		})
	}
}

func TestGenerateWithSlots(t *testing.T) {
	stmts, err := parse(t, "total = inbox() tmp = total + total outbox(tmp - total)")
	require.NoError(t, err)

	_, slots, err := GenerateWithSlots(stmts, map[int]hrm.Value{4: hrm.Int(0)}, 5)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"total": 3, "tmp": 2}, slots)
}

// TestGenerate_TemporariesNeverAlias checks that every slot written as a
// temporary is distinct from every variable slot and from any other
// temporary still waiting to be consumed.
func TestGenerate_TemporariesNeverAlias(t *testing.T) {
	src := `
		a = inbox() b = inbox() c = inbox() d = inbox()
		outbox(((a + b) - (c + d)) - ((c + d) - (inbox() + (a - b))))
	`
	stmts, err := parse(t, src)
	require.NoError(t, err)
	program, slots, err := GenerateWithSlots(stmts, nil, 10)
	require.NoError(t, err)

	varSlots := map[int]string{}
	for name, slot := range slots {
		varSlots[slot] = name
	}

	live := map[int]bool{}
	for _, in := range program {
		switch in.Op {
		case hrm.OpCopyTo:
			if _, isVar := varSlots[in.Ref.Index]; isVar {
				continue
			}
			require.False(t, live[in.Ref.Index], "temporary %d overwritten while live", in.Ref.Index)
			live[in.Ref.Index] = true
		case hrm.OpAdd, hrm.OpSub:
			delete(live, in.Ref.Index)
		}
	}
	require.Empty(t, live)
}

// TestGenerate_TemporariesSurviveLoopIterations defines a variable after a
// temporary has been released, then loops back over the code that spills
// into that temporary while the variable is still needed.
func TestGenerate_TemporariesSurviveLoopIterations(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		inbox []hrm.Value
		want  []hrm.Value
	}{
		{
			name:  "Variable Defined After Spill",
			src:   "while { a = inbox() outbox(a - (a + a)) if (a == 0) { v = a } outbox(v) }",
			inbox: hrm.Ints(0, 5),
			want:  hrm.Ints(0, 0, -5, 0),
		},
		{
			name:  "Accumulator Defined After Nested Spills",
			src:   "n = inbox() while { x = inbox() outbox((x + x) - (x - (x + x))) if (n == 0) { sum = x ++n } outbox(sum) }",
			inbox: hrm.Ints(0, 1, 2, 3),
			want:  hrm.Ints(3, 1, 6, 1, 9, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := parse(t, tt.src)
			require.NoError(t, err)
			program, slots, err := GenerateWithSlots(stmts, nil, 10)
			require.NoError(t, err)

			for _, p := range [][]hrm.Instruction{program, Optimize(program)} {
				got, err := machine.Run(p, nil, tt.inbox)
				require.NoError(t, err, "listing:\n%s", hrm.Render(p, slots))
				require.Equal(t, tt.want, got, "listing:\n%s", hrm.Render(p, slots))
			}
		})
	}
}
