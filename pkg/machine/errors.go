package machine

import (
	"errors"
	"fmt"
	"strings"

	"hrmc/pkg/hrm"
)

var (
	// Construction errors.
	ErrDuplicateLabel = errors.New("all labels must have different numbers")
	ErrUnknownLabel   = errors.New("all jumps must be to labels that exist")
	ErrBadPreset      = errors.New("preset outside memory")
	ErrBadMemorySize  = errors.New("memory size must be at least 1")
	ErrBadMaxSteps    = errors.New("max steps must be at least 1")
	ErrUnknownOpcode  = errors.New("unknown instruction")

	// Execution errors.
	ErrEmptyRegister     = errors.New("register is empty")
	ErrEmptyCell         = errors.New("memory cell is empty")
	ErrBadDereference    = errors.New("cannot dereference empty or non-int cell")
	ErrAddressOutOfRange = errors.New("address out of range")
	ErrMaxSteps          = errors.New("exceeded max steps")
)

// RuntimeError reports a fatal condition raised while executing the
// instruction at PC. Err is one of the sentinels above or wraps
// hrm.ErrArithmetic.
type RuntimeError struct {
	PC          int
	Instruction hrm.Instruction
	Msg         string
	Err         error
}

func (e *RuntimeError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("runtime error at %d (%s): %s", e.PC, strings.TrimSpace(e.Instruction.String()), msg)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
