package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result in the register.
type Expr interface {
	exprNode()
	String() string
}

// InboxExpr takes the next value from the inbox.
//
//	curr = inbox()
//	       ^^^^^^^  InboxExpr{}
type InboxExpr struct{}

func (*InboxExpr) exprNode()      {}
func (*InboxExpr) String() string { return "inbox()" }

// VarRef is a read of a named variable.
//
//	outbox(x)
//	       ^  VarRef{Name: "x"}
type VarRef struct {
	Name string
}

func (*VarRef) exprNode()        {}
func (v *VarRef) String() string { return v.Name }

// Assign stores Value into a variable and yields the stored value.
//
//	outbox(b = a)
//	       ^^^^^  Assign{Name: "b", Value: VarRef{a}}
type Assign struct {
	Name  string
	Value Expr
}

func (*Assign) exprNode()        {}
func (a *Assign) String() string { return fmt.Sprintf("(%s = %s)", a.Name, a.Value) }

// MemRead reads the cell whose address is held in Pointer.
//
//	outbox(*total)
//	       ^^^^^^  MemRead{Pointer: "total"}
type MemRead struct {
	Pointer string
}

func (*MemRead) exprNode()        {}
func (m *MemRead) String() string { return "*" + m.Pointer }

// MemWrite stores Value into the cell whose address is held in Pointer.
type MemWrite struct {
	Pointer string
	Value   Expr
}

func (*MemWrite) exprNode()        {}
func (m *MemWrite) String() string { return fmt.Sprintf("(*%s = %s)", m.Pointer, m.Value) }

// IntLiteral is an integer constant. It must be available in a preset cell.
type IntLiteral struct {
	Value int
}

func (*IntLiteral) exprNode()        {}
func (l *IntLiteral) String() string { return fmt.Sprintf("%d", l.Value) }

// LetterLiteral is a letter constant. It must be available in a preset cell.
type LetterLiteral struct {
	Value rune
}

func (*LetterLiteral) exprNode()        {}
func (l *LetterLiteral) String() string { return fmt.Sprintf("'%c'", l.Value) }

// BinaryExpr is Left + Right or Left - Right.
//
//	temp = a + b
//	       ^^^^^  BinaryExpr{Op: PLUS, Left: VarRef{a}, Right: VarRef{b}}
type BinaryExpr struct {
	Op    TokenType // PLUS or MINUS
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	op := "+"
	if b.Op == MINUS {
		op = "-"
	}
	return fmt.Sprintf("(%s %s %s)", b.Left, op, b.Right)
}

// IncDec bumps a variable, or the cell a variable points at, by one and
// yields the new value.
//
//	++a      IncDec{Op: PLUS_PLUS, Name: "a"}
//	--*index IncDec{Op: MINUS_MINUS, Name: "index", Deref: true}
type IncDec struct {
	Op    TokenType // PLUS_PLUS or MINUS_MINUS
	Name  string
	Deref bool
}

func (*IncDec) exprNode() {}
func (i *IncDec) String() string {
	op := "++"
	if i.Op == MINUS_MINUS {
		op = "--"
	}
	if i.Deref {
		return op + "*" + i.Name
	}
	return op + i.Name
}

//  Condition nodes

// CompareOp is one of the six comparison operators.
type CompareOp int

const (
	Equal CompareOp = iota
	NotEqual
	Less
	LessEq
	Greater
	GreaterEq
)

var compareOpNames = [...]string{
	Equal:     "==",
	NotEqual:  "!=",
	Less:      "<",
	LessEq:    "<=",
	Greater:   ">",
	GreaterEq: ">=",
}

func (op CompareOp) String() string {
	if int(op) >= 0 && int(op) < len(compareOpNames) {
		return compareOpNames[op]
	}
	return fmt.Sprintf("CompareOp(%d)", int(op))
}

// Cond is implemented by every node that can steer a branch.
// There is no negation node; genCond swaps its labels instead.
type Cond interface {
	condNode()
	String() string
}

// Compare is Left Op Right.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (*Compare) condNode() {}
func (c *Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// LogicalCond is Left && Right or Left || Right, evaluated short-circuit.
type LogicalCond struct {
	Op    TokenType // AND_LOGICAL or OR_LOGICAL
	Left  Cond
	Right Cond
}

func (*LogicalCond) condNode() {}
func (l *LogicalCond) String() string {
	op := "&&"
	if l.Op == OR_LOGICAL {
		op = "||"
	}
	return fmt.Sprintf("(%s %s %s)", l.Left, op, l.Right)
}

//  Statement nodes

// Stmt is implemented by every node that carries out an action.
type Stmt interface {
	stmtNode()
	String() string
}

// OutboxStmt evaluates Value and puts it in the outbox.
type OutboxStmt struct {
	Value Expr
}

func (*OutboxStmt) stmtNode()        {}
func (o *OutboxStmt) String() string { return fmt.Sprintf("outbox(%s)", o.Value) }

// IfStmt runs Body when Cond holds, ElseBody (which may be nil) otherwise.
type IfStmt struct {
	Cond     Cond
	Body     Stmt
	ElseBody Stmt
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	if i.ElseBody == nil {
		return fmt.Sprintf("if (%s) %s", i.Cond, i.Body)
	}
	return fmt.Sprintf("if (%s) %s else %s", i.Cond, i.Body, i.ElseBody)
}

// WhileStmt loops while Cond holds. A nil Cond loops forever; only break,
// return or running out of input leaves it.
type WhileStmt struct {
	Cond Cond
	Body Stmt
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) String() string {
	if w.Cond == nil {
		return fmt.Sprintf("while %s", w.Body)
	}
	return fmt.Sprintf("while (%s) %s", w.Cond, w.Body)
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct{}

func (*BreakStmt) stmtNode()      {}
func (*BreakStmt) String() string { return "break" }

// ContinueStmt re-tests the innermost loop's condition.
type ContinueStmt struct{}

func (*ContinueStmt) stmtNode()      {}
func (*ContinueStmt) String() string { return "continue" }

// ReturnStmt ends the program.
type ReturnStmt struct{}

func (*ReturnStmt) stmtNode()      {}
func (*ReturnStmt) String() string { return "return" }

// BlockStmt is a braced sequence of statements.
type BlockStmt struct {
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}
func (b *BlockStmt) String() string {
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return e.Expr.String() }
