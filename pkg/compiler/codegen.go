package compiler

import (
	"errors"
	"fmt"

	"hrmc/pkg/hrm"
)

var (
	ErrBreakOutsideLoop    = errors.New("break outside of a loop")
	ErrContinueOutsideLoop = errors.New("continue outside of a loop")
)

// CodeGen walks an AST and emits machine instructions.
type CodeGen struct {
	syms      *SymbolTable
	out       []hrm.Instruction
	nextLabel int
	terminate int
	loopStack []LoopLabel
}

// LoopLabel holds the jump targets of the innermost enclosing loop.
type LoopLabel struct {
	End      int // where 'break' jumps to
	Continue int // where 'continue' jumps to
}

func newCodeGen(syms *SymbolTable) *CodeGen {
	cg := &CodeGen{syms: syms}
	cg.terminate = cg.newLabel()
	return cg
}

func (cg *CodeGen) newLabel() int {
	l := cg.nextLabel
	cg.nextLabel++
	return l
}

func (cg *CodeGen) emit(in ...hrm.Instruction) {
	cg.out = append(cg.out, in...)
}

// comparison describes how one CompareOp maps onto the machine's two tests.
// The emitted code computes Left - Right and tests it; when negate is set
// the test leads to the false label instead of the true one.
type comparison struct {
	swap   bool
	test   func(label int) hrm.Instruction
	negate bool
}

var comparisons = map[CompareOp]comparison{
	Equal:     {swap: false, test: hrm.JumpIfZero, negate: false},
	NotEqual:  {swap: false, test: hrm.JumpIfZero, negate: true},
	Less:      {swap: false, test: hrm.JumpIfNegative, negate: false},
	LessEq:    {swap: true, test: hrm.JumpIfNegative, negate: true},
	Greater:   {swap: true, test: hrm.JumpIfNegative, negate: false},
	GreaterEq: {swap: false, test: hrm.JumpIfNegative, negate: true},
}

// operand evaluates e as the right side of a binary operation and returns a
// reference to where its value can be read. A borrowed temporary is returned
// in temp (or -1) and must be released after the operation is emitted.
func (cg *CodeGen) operand(e Expr) (ref hrm.MemRef, temp int, err error) {
	temp = -1
	switch n := e.(type) {
	case *VarRef:
		slot, err := cg.syms.Lookup(n.Name)
		if err != nil {
			return ref, temp, err
		}
		return hrm.FixedAddr(slot), temp, nil

	case *MemRead:
		slot, err := cg.syms.Lookup(n.Pointer)
		if err != nil {
			return ref, temp, err
		}
		return hrm.Dereference(slot), temp, nil

	case *IntLiteral:
		idx, err := cg.syms.Constant(hrm.Int(n.Value))
		if err != nil {
			return ref, temp, err
		}
		return hrm.FixedAddr(idx), temp, nil

	case *LetterLiteral:
		idx, err := cg.syms.Constant(hrm.Letter(n.Value))
		if err != nil {
			return ref, temp, err
		}
		return hrm.FixedAddr(idx), temp, nil

	case *Assign, *MemWrite, *IncDec:
		// These leave their result in a named cell as well as the register.
		if err := cg.genExpr(e); err != nil {
			return ref, temp, err
		}
		return cg.resultCell(e)
	}

	if err := cg.genExpr(e); err != nil {
		return ref, temp, err
	}
	temp, err = cg.syms.Borrow()
	if err != nil {
		return ref, -1, err
	}
	cg.emit(hrm.CopyTo(hrm.FixedAddr(temp)))
	return hrm.FixedAddr(temp), temp, nil
}

// resultCell returns the cell a just-generated store or bump wrote to.
func (cg *CodeGen) resultCell(e Expr) (hrm.MemRef, int, error) {
	var (
		name  string
		deref bool
	)
	switch n := e.(type) {
	case *Assign:
		name = n.Name
	case *MemWrite:
		name, deref = n.Pointer, true
	case *IncDec:
		name, deref = n.Name, n.Deref
	}
	slot, err := cg.syms.Lookup(name)
	if err != nil {
		return hrm.MemRef{}, -1, err
	}
	if deref {
		return hrm.Dereference(slot), -1, nil
	}
	return hrm.FixedAddr(slot), -1, nil
}

// genBinary evaluates right, then left into the register, then combines them.
func (cg *CodeGen) genBinary(left, right Expr, combine func(hrm.MemRef) hrm.Instruction) error {
	ref, temp, err := cg.operand(right)
	if err != nil {
		return err
	}
	if err := cg.genExpr(left); err != nil {
		return err
	}
	cg.emit(combine(ref))
	if temp >= 0 {
		cg.syms.Release(temp)
	}
	return nil
}

// genExpr emits code that leaves the value of e in the register.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {

	case *InboxExpr:
		cg.emit(hrm.Inbox())
		return nil

	case *VarRef:
		slot, err := cg.syms.Lookup(n.Name)
		if err != nil {
			return err
		}
		cg.emit(hrm.CopyFrom(hrm.FixedAddr(slot)))
		return nil

	case *Assign:
		// The value is generated before the variable exists, so "a = a"
		// reads an undefined variable.
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		slot, err := cg.syms.Define(n.Name)
		if err != nil {
			return err
		}
		cg.emit(hrm.CopyTo(hrm.FixedAddr(slot)))
		return nil

	case *MemRead:
		slot, err := cg.syms.Lookup(n.Pointer)
		if err != nil {
			return err
		}
		cg.emit(hrm.CopyFrom(hrm.Dereference(slot)))
		return nil

	case *MemWrite:
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		slot, err := cg.syms.Lookup(n.Pointer)
		if err != nil {
			return err
		}
		cg.emit(hrm.CopyTo(hrm.Dereference(slot)))
		return nil

	case *IntLiteral:
		idx, err := cg.syms.Constant(hrm.Int(n.Value))
		if err != nil {
			return err
		}
		cg.emit(hrm.CopyFrom(hrm.FixedAddr(idx)))
		return nil

	case *LetterLiteral:
		idx, err := cg.syms.Constant(hrm.Letter(n.Value))
		if err != nil {
			return err
		}
		cg.emit(hrm.CopyFrom(hrm.FixedAddr(idx)))
		return nil

	case *BinaryExpr:
		if n.Op == MINUS {
			return cg.genBinary(n.Left, n.Right, hrm.Sub)
		}
		return cg.genBinary(n.Left, n.Right, hrm.Add)

	case *IncDec:
		slot, err := cg.syms.Lookup(n.Name)
		if err != nil {
			return err
		}
		ref := hrm.FixedAddr(slot)
		if n.Deref {
			ref = hrm.Dereference(slot)
		}
		if n.Op == MINUS_MINUS {
			cg.emit(hrm.BumpDown(ref))
		} else {
			cg.emit(hrm.BumpUp(ref))
		}
		return nil
	}
	return fmt.Errorf("unsupported expression %T", e)
}

// genCond emits a branch to onTrue when c holds and to onFalse otherwise.
// Control never falls through.
func (cg *CodeGen) genCond(c Cond, onTrue, onFalse int) error {
	switch n := c.(type) {

	case *LogicalCond:
		mid := cg.newLabel()
		var err error
		if n.Op == AND_LOGICAL {
			err = cg.genCond(n.Left, mid, onFalse)
		} else {
			err = cg.genCond(n.Left, onTrue, mid)
		}
		if err != nil {
			return err
		}
		cg.emit(hrm.Label(mid))
		return cg.genCond(n.Right, onTrue, onFalse)

	case *Compare:
		cmp, ok := comparisons[n.Op]
		if !ok {
			return fmt.Errorf("unsupported comparison %v", n.Op)
		}
		left, right := n.Left, n.Right
		if cmp.swap {
			left, right = right, left
		}

		var err error
		if lit, ok := right.(*IntLiteral); ok && lit.Value == 0 {
			err = cg.genExpr(left)
		} else {
			err = cg.genBinary(left, right, hrm.Sub)
		}
		if err != nil {
			return err
		}

		taken, other := onTrue, onFalse
		if cmp.negate {
			taken, other = onFalse, onTrue
		}
		cg.emit(cmp.test(taken), hrm.Jump(other))
		return nil
	}
	return fmt.Errorf("unsupported condition %T", c)
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {

	case *ExprStmt:
		return cg.genExpr(n.Expr)

	case *OutboxStmt:
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		cg.emit(hrm.Outbox())
		return nil

	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if err := cg.genStmt(stmt); err != nil {
				return err
			}
		}
		return nil

	case *IfStmt:
		onTrue, onFalse, after := cg.newLabel(), cg.newLabel(), cg.newLabel()
		if err := cg.genCond(n.Cond, onTrue, onFalse); err != nil {
			return err
		}
		cg.emit(hrm.Label(onTrue))
		if err := cg.genStmt(n.Body); err != nil {
			return err
		}
		cg.emit(hrm.Jump(after), hrm.Label(onFalse))
		if n.ElseBody != nil {
			if err := cg.genStmt(n.ElseBody); err != nil {
				return err
			}
		}
		cg.emit(hrm.Label(after))
		return nil

	case *WhileStmt:
		loopTop, condCheck, after := cg.newLabel(), cg.newLabel(), cg.newLabel()

		if n.Cond == nil {
			cg.loopStack = append(cg.loopStack, LoopLabel{End: after, Continue: loopTop})
			cg.emit(hrm.Label(loopTop))
			if err := cg.genStmt(n.Body); err != nil {
				return err
			}
			cg.emit(hrm.Jump(loopTop), hrm.Label(after))
			cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
			return nil
		}

		cg.loopStack = append(cg.loopStack, LoopLabel{End: after, Continue: condCheck})
		cg.emit(hrm.Label(condCheck))
		if err := cg.genCond(n.Cond, loopTop, after); err != nil {
			return err
		}
		cg.emit(hrm.Label(loopTop))
		if err := cg.genStmt(n.Body); err != nil {
			return err
		}
		cg.emit(hrm.Jump(condCheck), hrm.Label(after))
		cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
		return nil

	case *BreakStmt:
		if len(cg.loopStack) == 0 {
			return ErrBreakOutsideLoop
		}
		cg.emit(hrm.Jump(cg.loopStack[len(cg.loopStack)-1].End))
		return nil

	case *ContinueStmt:
		if len(cg.loopStack) == 0 {
			return ErrContinueOutsideLoop
		}
		cg.emit(hrm.Jump(cg.loopStack[len(cg.loopStack)-1].Continue))
		return nil

	case *ReturnStmt:
		cg.emit(hrm.Jump(cg.terminate))
		return nil
	}
	return fmt.Errorf("unsupported statement %T", s)
}

// Generate lowers stmts into an unoptimized instruction sequence for a
// machine with memorySize cells, the given presets doubling as the
// constant pool.
func Generate(stmts []Stmt, presets map[int]hrm.Value, memorySize int) ([]hrm.Instruction, error) {
	program, _, err := GenerateWithSlots(stmts, presets, memorySize)
	return program, err
}

// GenerateWithSlots is Generate that also reports the slot given to each
// variable.
func GenerateWithSlots(stmts []Stmt, presets map[int]hrm.Value, memorySize int) ([]hrm.Instruction, map[string]int, error) {
	syms, err := NewSymbolTable(presets, memorySize)
	if err != nil {
		return nil, nil, err
	}
	cg := newCodeGen(syms)
	for _, stmt := range stmts {
		if err := cg.genStmt(stmt); err != nil {
			return nil, nil, err
		}
	}
	cg.emit(hrm.Label(cg.terminate))
	return cg.out, syms.Slots(), nil
}
