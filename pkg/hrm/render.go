package hrm

import (
	"fmt"
	"sort"
	"strings"
)

// ListingHeader opens every listing, as in the game's clipboard export.
const ListingHeader = "-- HUMAN RESOURCE MACHINE PROGRAM --"

// Render produces a human-readable listing of program. When slots is non-nil
// each variable's slot is noted in the header, lowest slot first.
func Render(program []Instruction, slots map[string]int) string {
	var b strings.Builder
	b.WriteString(ListingHeader)
	b.WriteByte('\n')

	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if slots[names[i]] != slots[names[j]] {
			return slots[names[i]] < slots[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(&b, "-- Slot %d: %s\n", slots[name], name)
	}

	b.WriteByte('\n')
	for _, in := range program {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}
