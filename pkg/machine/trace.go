package machine

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"hrmc/pkg/hrm"
)

// Step describes the machine just before an instruction executes.
type Step struct {
	Count       int // 1-based number of the step
	PC          int
	Instruction hrm.Instruction
	Register    hrm.Value
	HasRegister bool
}

// Tracer observes execution one step at a time.
type Tracer interface {
	Step(s Step)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(s Step)

func (f TracerFunc) Step(s Step) { f(s) }

// TableTracer records every step and renders them as a table.
type TableTracer struct {
	// Limit caps the number of recorded steps; zero records everything.
	Limit int

	steps   []Step
	dropped int
}

func NewTableTracer(limit int) *TableTracer {
	return &TableTracer{Limit: limit}
}

func (t *TableTracer) Step(s Step) {
	if t.Limit > 0 && len(t.steps) >= t.Limit {
		t.dropped++
		return
	}
	t.steps = append(t.steps, s)
}

// Steps returns the recorded steps.
func (t *TableTracer) Steps() []Step { return t.steps }

// Render returns the recorded trace as a text table.
func (t *TableTracer) Render() string {
	tw := table.NewWriter()
	tw.SetTitle("Execution trace")
	tw.AppendHeader(table.Row{"Step", "PC", "Instruction", "Register"})
	for _, s := range t.steps {
		register := "-"
		if s.HasRegister {
			register = s.Register.String()
		}
		tw.AppendRow(table.Row{s.Count, s.PC, strings.TrimSpace(s.Instruction.String()), register})
	}
	if t.dropped > 0 {
		tw.AppendFooter(table.Row{"", "", "steps not shown", t.dropped})
	}
	return tw.Render()
}
