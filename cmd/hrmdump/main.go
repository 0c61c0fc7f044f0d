// Command hrmdump prints every compiler stage for a program: tokens, tree,
// generated instructions, memory layout and the optimized listing.
package main

import (
	"fmt"
	"os"
	"sort"

	"hrmc/pkg/compiler"
	"hrmc/pkg/hrm"
	"hrmc/pkg/utils"
)

const testSource = `// MEMORYSIZE 5
// PRESETS 4=0
while {
  a = inbox()
  if (a < 0) { a = 0 - a }
  outbox(a)
}
`

func main() {
	src := testSource
	if len(os.Args) > 1 {
		var err error
		src, err = utils.ReadSource(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
	}

	header, err := compiler.ParseHeader(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "header error:", err)
		os.Exit(1)
	}
	if header.MemorySize == 0 {
		header.MemorySize = 100
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	stmts, err := compiler.Parse(tokens, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("Tree")
	for _, s := range stmts {
		fmt.Println(" ", s)
	}
	fmt.Println()

	// Code generation
	raw, slots, err := compiler.GenerateWithSlots(stmts, header.Presets, header.MemorySize)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated Instructions")
	fmt.Print(hrm.Render(raw, nil))
	fmt.Println()

	fmt.Println("Memory")
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-10s %d\n", name, slots[name])
	}
	cells := make([]int, 0, len(header.Presets))
	for idx := range header.Presets {
		cells = append(cells, idx)
	}
	sort.Ints(cells)
	for _, idx := range cells {
		fmt.Printf("  preset %-3d %s\n", idx, header.Presets[idx])
	}
	fmt.Println()

	optimized := compiler.Optimize(raw)
	fmt.Printf("Optimized (%d -> %d)\n", len(raw), len(optimized))
	fmt.Print(hrm.Render(optimized, slots))
}
