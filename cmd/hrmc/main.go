// Command hrmc compiles programs for the Human Resource Machine and runs them
// on a simulated office.
//
//	hrmc -execute 5,18 fibonacci.hrm
//	hrmc -level vowels.yaml vowels.hrm
//	hrmc -listing solution.txt -execute A,B,0 -trace
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"hrmc/pkg/asm"
	"hrmc/pkg/compiler"
	"hrmc/pkg/hrm"
	"hrmc/pkg/level"
	"hrmc/pkg/machine"
	"hrmc/pkg/utils"
)

// errUsage marks errors caused by bad command-line arguments.
var errUsage = errors.New("usage")

type config struct {
	execute   string
	levelPath string
	listing   string
	printTree bool
	raw       bool
	slots     bool
	trace     bool
	maxSteps  int
	verbose   bool
	source    string
}

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("hrmc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.execute, "execute", "", "comma-separated inbox values to run the program against, e.g. 1,-3,A")
	fs.StringVar(&cfg.levelPath, "level", "", "YAML level file providing memory size, presets, inbox and expected outbox")
	fs.StringVar(&cfg.listing, "listing", "", "run an existing instruction listing instead of compiling a program")
	fs.BoolVar(&cfg.printTree, "print-tree", false, "print the parsed program tree")
	fs.BoolVar(&cfg.raw, "raw", false, "skip the peephole optimizer")
	fs.BoolVar(&cfg.slots, "slots", false, "print a table of memory slots")
	fs.BoolVar(&cfg.trace, "trace", false, "print every executed step")
	fs.IntVar(&cfg.maxSteps, "max-steps", machine.DefaultMaxSteps, "abort execution after this many steps")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: hrmc [flags] [program]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	switch {
	case cfg.listing != "" && fs.NArg() > 0:
		return nil, fmt.Errorf("%w: use either a program or -listing, not both", errUsage)
	case cfg.listing == "" && fs.NArg() != 1:
		fs.Usage()
		return nil, fmt.Errorf("%w: expected one program file", errUsage)
	case cfg.execute != "" && cfg.levelPath != "":
		return nil, fmt.Errorf("%w: -execute and -level both supply an inbox", errUsage)
	case cfg.maxSteps < 1:
		return nil, fmt.Errorf("%w: -max-steps must be positive", errUsage)
	}
	if cfg.listing == "" {
		cfg.source = fs.Arg(0)
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// program is what the machine is about to run, whichever way it was produced.
type program struct {
	instructions []hrm.Instruction
	slots        map[string]int
	presets      map[int]hrm.Value
	memorySize   int
	sourceMap    map[int]int // listing line per instruction, when assembled
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(stderr, cfg.verbose))

	var lvl *level.Level
	if cfg.levelPath != "" {
		lvl, err = level.Load(cfg.levelPath)
		if err != nil {
			return err
		}
		slog.Debug("loaded level", "name", lvl.Name, "memory", lvl.MemorySize, "inbox", len(lvl.Inbox))
	}

	var prog *program
	if cfg.listing != "" {
		prog, err = assembleListing(cfg.listing, lvl)
	} else {
		prog, err = compileSource(cfg, lvl, stdout)
	}
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, hrm.Render(prog.instructions, prog.slots))
	if cfg.slots {
		fmt.Fprintln(stdout, slotTable(prog))
	}

	var inbox []hrm.Value
	switch {
	case lvl != nil:
		inbox = lvl.Inbox
	case cfg.execute != "":
		inbox, err = compiler.ParseValues(cfg.execute)
		if err != nil {
			return fmt.Errorf("-execute: %w", err)
		}
	default:
		return nil
	}

	outbox, err := execute(cfg, prog, inbox, stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nOutbox: %s\n", formatValues(outbox))

	if lvl != nil && lvl.HasExpectation() {
		if err := lvl.Check(outbox); err != nil {
			return err
		}
		slog.Info("level passed", "name", lvl.Name)
	}
	return nil
}

func compileSource(cfg *config, lvl *level.Level, stdout io.Writer) (*program, error) {
	src, err := utils.ReadSource(cfg.source)
	if err != nil {
		return nil, err
	}

	var opts []compiler.Option
	if lvl != nil {
		opts = append(opts, compiler.WithMemorySize(lvl.MemorySize), compiler.WithPresets(lvl.Presets))
	}
	if cfg.raw {
		opts = append(opts, compiler.WithoutOptimization())
	}

	res, err := compiler.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.source, err)
	}
	slog.Debug("compiled",
		"file", cfg.source,
		"raw", len(res.Raw),
		"optimized", len(res.Program),
		"variables", len(res.Slots))

	if cfg.printTree {
		for _, s := range res.Tree {
			fmt.Fprintln(stdout, s)
		}
		fmt.Fprintln(stdout)
	}

	return &program{
		instructions: res.Program,
		slots:        res.Slots,
		presets:      res.Header.Presets,
		memorySize:   res.Header.MemorySize,
	}, nil
}

func assembleListing(path string, lvl *level.Level) (*program, error) {
	src, err := utils.ReadSource(path)
	if err != nil {
		return nil, err
	}
	instructions, sourceMap, err := asm.Assemble(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("assembled", "file", path, "instructions", len(instructions))

	prog := &program{
		instructions: instructions,
		memorySize:   machine.DefaultMemorySize,
		sourceMap:    sourceMap,
	}
	if lvl != nil {
		prog.presets = lvl.Presets
		prog.memorySize = lvl.MemorySize
	}
	return prog, nil
}

func execute(cfg *config, prog *program, inbox []hrm.Value, stdout io.Writer) ([]hrm.Value, error) {
	opts := []machine.Option{
		machine.WithMemorySize(prog.memorySize),
		machine.WithMaxSteps(cfg.maxSteps),
	}
	var tracer *machine.TableTracer
	if cfg.trace {
		tracer = machine.NewTableTracer(0)
		opts = append(opts, machine.WithTracer(tracer))
	}

	m, err := machine.New(prog.instructions, prog.presets, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("executing", "inbox", formatValues(inbox), "max_steps", cfg.maxSteps)
	outbox, err := m.Execute(inbox)

	if tracer != nil {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, tracer.Render())
	}

	var rtErr *machine.RuntimeError
	if errors.As(err, &rtErr) {
		if line, ok := prog.sourceMap[rtErr.PC]; ok {
			return outbox, fmt.Errorf("%s line %d: %w", cfg.listing, line, err)
		}
	}
	return outbox, err
}

func formatValues(values []hrm.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// slotTable lists every cell that holds a variable or a preset.
func slotTable(prog *program) string {
	names := make(map[int][]string)
	for name, idx := range prog.slots {
		names[idx] = append(names[idx], name)
	}
	var cells []int
	for idx := range names {
		cells = append(cells, idx)
	}
	for idx := range prog.presets {
		if _, ok := names[idx]; !ok {
			cells = append(cells, idx)
		}
	}
	sort.Ints(cells)

	tw := table.NewWriter()
	tw.SetTitle("Memory")
	tw.AppendHeader(table.Row{"Slot", "Variable", "Preset"})
	for _, idx := range cells {
		preset := "-"
		if v, ok := prog.presets[idx]; ok {
			preset = v.String()
		}
		sort.Strings(names[idx])
		tw.AppendRow(table.Row{idx, strings.Join(names[idx], ", "), preset})
	}
	tw.AppendFooter(table.Row{"", "memory size", prog.memorySize})
	return tw.Render()
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		atexit.Exit(0)
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "hrmc:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
