package hrm

import (
	"fmt"
	"strings"
)

// Opcode identifies an instruction of the machine.
type Opcode uint8

const (
	OpInbox Opcode = iota
	OpOutbox
	OpCopyFrom
	OpCopyTo
	OpAdd
	OpSub
	OpBumpUp
	OpBumpDown
	OpLabel
	OpJump
	OpJumpIfZero
	OpJumpIfNegative
)

// mnemonics is indexed by Opcode and matches the game's listing format.
var mnemonics = [...]string{
	OpInbox:          "INBOX",
	OpOutbox:         "OUTBOX",
	OpCopyFrom:       "COPYFROM",
	OpCopyTo:         "COPYTO",
	OpAdd:            "ADD",
	OpSub:            "SUB",
	OpBumpUp:         "BUMPUP",
	OpBumpDown:       "BUMPDN",
	OpLabel:          "LABEL",
	OpJump:           "JUMP",
	OpJumpIfZero:     "JUMPZ",
	OpJumpIfNegative: "JUMPN",
}

func (op Opcode) String() string {
	if int(op) < len(mnemonics) {
		return mnemonics[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Valid reports whether op is one of the machine's instructions.
func (op Opcode) Valid() bool { return int(op) < len(mnemonics) }

// LookupOpcode maps a listing mnemonic back to its Opcode.
func LookupOpcode(mnemonic string) (Opcode, bool) {
	for op, m := range mnemonics {
		if m == mnemonic {
			return Opcode(op), true
		}
	}
	return 0, false
}

// Instruction is one element of a program. Ref is meaningful for the memory
// instructions, Target for labels and jumps. Instructions are comparable.
type Instruction struct {
	Op     Opcode
	Ref    MemRef
	Target int
}

func Inbox() Instruction                   { return Instruction{Op: OpInbox} }
func Outbox() Instruction                  { return Instruction{Op: OpOutbox} }
func CopyFrom(ref MemRef) Instruction      { return Instruction{Op: OpCopyFrom, Ref: ref} }
func CopyTo(ref MemRef) Instruction        { return Instruction{Op: OpCopyTo, Ref: ref} }
func Add(ref MemRef) Instruction           { return Instruction{Op: OpAdd, Ref: ref} }
func Sub(ref MemRef) Instruction           { return Instruction{Op: OpSub, Ref: ref} }
func BumpUp(ref MemRef) Instruction        { return Instruction{Op: OpBumpUp, Ref: ref} }
func BumpDown(ref MemRef) Instruction      { return Instruction{Op: OpBumpDown, Ref: ref} }
func Label(id int) Instruction             { return Instruction{Op: OpLabel, Target: id} }
func Jump(label int) Instruction           { return Instruction{Op: OpJump, Target: label} }
func JumpIfZero(label int) Instruction     { return Instruction{Op: OpJumpIfZero, Target: label} }
func JumpIfNegative(label int) Instruction { return Instruction{Op: OpJumpIfNegative, Target: label} }

// IsLabel reports whether the instruction is a non-executing label marker.
func (in Instruction) IsLabel() bool { return in.Op == OpLabel }

// HasTarget reports whether the instruction is one of the jump family.
func (in Instruction) HasTarget() bool {
	switch in.Op {
	case OpJump, OpJumpIfZero, OpJumpIfNegative:
		return true
	}
	return false
}

// IsUnconditionalJump reports whether control never falls through in.
func (in Instruction) IsUnconditionalJump() bool { return in.Op == OpJump }

// HasOperand reports whether the instruction addresses memory.
func (in Instruction) HasOperand() bool {
	switch in.Op {
	case OpCopyFrom, OpCopyTo, OpAdd, OpSub, OpBumpUp, OpBumpDown:
		return true
	}
	return false
}

// WithTarget returns a copy of a jump retargeted to label.
func (in Instruction) WithTarget(label int) Instruction {
	in.Target = label
	return in
}

func (in Instruction) String() string {
	switch {
	case in.Op == OpLabel:
		return LabelName(in.Target) + ":"
	case in.HasTarget():
		return fmt.Sprintf("    %-8s %s", in.Op, LabelName(in.Target))
	case in.HasOperand():
		return fmt.Sprintf("    %-8s %s", in.Op, in.Ref)
	default:
		return "    " + in.Op.String()
	}
}

// LabelName renders a label id as a lowercase name: 0 is "a", 25 is "z",
// 26 is "aa".
func LabelName(id int) string {
	if id < 0 {
		return fmt.Sprintf("L%d", id)
	}
	var b []byte
	for n := id + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('a'+(n-1)%26))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// ParseLabelName is the inverse of LabelName.
func ParseLabelName(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	n := 0
	for _, c := range strings.ToLower(name) {
		if c < 'a' || c > 'z' {
			return 0, false
		}
		n = n*26 + int(c-'a') + 1
	}
	return n - 1, true
}
