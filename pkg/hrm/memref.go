package hrm

import "fmt"

// AddrMode selects how a MemRef reaches its cell.
type AddrMode uint8

const (
	// Direct addresses the cell at Index.
	Direct AddrMode = iota
	// Indirect reads the integer stored at Index and addresses that cell.
	Indirect
)

// MemRef is an instruction operand naming a memory cell.
type MemRef struct {
	Mode  AddrMode
	Index int
}

// FixedAddr refers to cell i directly.
func FixedAddr(i int) MemRef { return MemRef{Mode: Direct, Index: i} }

// Dereference refers to the cell whose address is stored in cell i.
func Dereference(i int) MemRef { return MemRef{Mode: Indirect, Index: i} }

func (r MemRef) IsDereference() bool { return r.Mode == Indirect }

// String renders the operand the way the game's listings do: "3" or "[3]".
func (r MemRef) String() string {
	if r.Mode == Indirect {
		return fmt.Sprintf("[%d]", r.Index)
	}
	return fmt.Sprintf("%d", r.Index)
}
