package compiler

import "hrmc/pkg/hrm"

// Optimize shrinks a program with four peephole rules, repeated until a full
// pass changes nothing. The input slice is not modified.
//
//  1. A jump whose target starts with an unconditional jump takes over that
//     jump's target, following the chain to its end. Chains that loop,
//     such as a label followed by a jump to itself, are left alone.
//  2. A jump to the instruction that follows it anyway is removed.
//  3. Code after an unconditional jump, up to the next label, is removed.
//  4. Labels that no jump names are removed.
func Optimize(program []hrm.Instruction) []hrm.Instruction {
	o := &optimizer{program: append([]hrm.Instruction(nil), program...)}
	for {
		changed := o.collapseJumpChains()
		changed = o.removeJumpsToNext() || changed
		changed = o.removeUnreachable() || changed
		changed = o.removeUnusedLabels() || changed
		if !changed {
			return o.program
		}
	}
}

type optimizer struct {
	program []hrm.Instruction
}

// labelPos returns the position of the label with the given id, or -1.
// Positions change as instructions are removed, so labels are always
// looked up by id.
func (o *optimizer) labelPos(id int) int {
	for i, in := range o.program {
		if in.IsLabel() && in.Target == id {
			return i
		}
	}
	return -1
}

// nextReal returns the position of the first non-label instruction at or
// after pos; len(program) when only labels remain.
func (o *optimizer) nextReal(pos int) int {
	for pos < len(o.program) && o.program[pos].IsLabel() {
		pos++
	}
	return pos
}

// destination returns where control lands when jumping to label id.
func (o *optimizer) destination(id int) int {
	pos := o.labelPos(id)
	if pos < 0 {
		return -1
	}
	return o.nextReal(pos)
}

func (o *optimizer) collapseJumpChains() bool {
	changed := false
	for i, in := range o.program {
		if !in.HasTarget() {
			continue
		}
		if final := o.chainEnd(in.Target); final != in.Target {
			o.program[i] = in.WithTarget(final)
			changed = true
		}
	}
	return changed
}

// chainEnd follows unconditional jumps starting at label id and returns the
// last label reached. A chain that loops back on itself, including a jump
// to its own label, is left as it is and id is returned.
func (o *optimizer) chainEnd(id int) int {
	seen := map[int]bool{id: true}
	cur := id
	for {
		dest := o.destination(cur)
		if dest < 0 || dest >= len(o.program) || !o.program[dest].IsUnconditionalJump() {
			return cur
		}
		next := o.program[dest].Target
		if seen[next] {
			return id
		}
		seen[next] = true
		cur = next
	}
}

func (o *optimizer) removeJumpsToNext() bool {
	return o.removeMatching(func(i int, in hrm.Instruction) bool {
		if !in.HasTarget() {
			return false
		}
		dest := o.destination(in.Target)
		return dest >= 0 && dest == o.nextReal(i+1)
	})
}

func (o *optimizer) removeUnreachable() bool {
	reachable := true
	return o.removeMatching(func(_ int, in hrm.Instruction) bool {
		if in.IsLabel() {
			reachable = true
		}
		dead := !reachable
		if in.IsUnconditionalJump() {
			reachable = false
		}
		return dead
	})
}

func (o *optimizer) removeUnusedLabels() bool {
	used := make(map[int]bool)
	for _, in := range o.program {
		if in.HasTarget() {
			used[in.Target] = true
		}
	}
	return o.removeMatching(func(_ int, in hrm.Instruction) bool {
		return in.IsLabel() && !used[in.Target]
	})
}

// removeMatching decides on every instruction against the current program
// and then drops the ones pred selected.
func (o *optimizer) removeMatching(pred func(i int, in hrm.Instruction) bool) bool {
	drop := make([]bool, len(o.program))
	found := false
	for i, in := range o.program {
		if pred(i, in) {
			drop[i] = true
			found = true
		}
	}
	if !found {
		return false
	}
	kept := make([]hrm.Instruction, 0, len(o.program))
	for i, in := range o.program {
		if !drop[i] {
			kept = append(kept, in)
		}
	}
	o.program = kept
	return true
}
