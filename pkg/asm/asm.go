// Package asm reads programs in the game's text export format back into
// instructions.
//
//	-- HUMAN RESOURCE MACHINE PROGRAM --
//
//	a:
//	    INBOX
//	    COPYTO   [9]
//	    JUMPZ    a
//	    COMMENT  0
//
//	DEFINE COMMENT 0
//	eJzLYGBgCAAAAf//;
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"hrmc/pkg/hrm"
)

type Assembler struct {
	labels map[string]int // label name -> label id
}

type parsedLine struct {
	lineNo   int
	label    string
	mnemonic string
	operand  string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble parses a listing. The returned source map gives the 1-based
// line each instruction came from, keyed by its index in the program.
func Assemble(code string) ([]hrm.Instruction, map[int]int, error) {
	return NewAssembler().Assemble(code)
}

// Assemble parses one listing. Labels from earlier calls are forgotten, so
// an Assembler may be reused.
func (a *Assembler) Assemble(code string) ([]hrm.Instruction, map[int]int, error) {
	a.labels = make(map[string]int)
	lines, err := a.pass1(strings.Split(code, "\n"))
	if err != nil {
		return nil, nil, err
	}
	return a.pass2(lines)
}

// pass1 tokenises every line and assigns label ids.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var parsed []parsedLine
	inDefine := false

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		// DEFINE blocks carry the game's drawn comments and label names as
		// base64 data terminated by ';'.
		if inDefine {
			if strings.HasSuffix(line, ";") {
				inDefine = false
			}
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "DEFINE ") {
			inDefine = true
			continue
		}

		p, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if p.label != "" {
			if _, exists := a.labels[p.label]; exists {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", p.label, lineNo)
			}
			id, ok := hrm.ParseLabelName(p.label)
			if !ok {
				return nil, fmt.Errorf("invalid label '%s' on line %d", p.label, lineNo)
			}
			a.labels[p.label] = id
		}
		if p.label != "" || p.mnemonic != "" {
			parsed = append(parsed, p)
		}
	}
	if inDefine {
		return nil, fmt.Errorf("unterminated DEFINE block")
	}
	return parsed, nil
}

// pass2 turns parsed lines into instructions.
func (a *Assembler) pass2(lines []parsedLine) ([]hrm.Instruction, map[int]int, error) {
	var program []hrm.Instruction
	sourceMap := make(map[int]int)

	for _, p := range lines {
		if p.label != "" {
			sourceMap[len(program)] = p.lineNo
			program = append(program, hrm.Label(a.labels[p.label]))
			continue
		}

		op, ok := hrm.LookupOpcode(p.mnemonic)
		if !ok || op == hrm.OpLabel {
			return nil, nil, fmt.Errorf("unknown instruction '%s' on line %d", p.mnemonic, p.lineNo)
		}

		in := hrm.Instruction{Op: op}
		switch {
		case in.HasTarget():
			id, ok := a.labels[p.operand]
			if !ok {
				return nil, nil, fmt.Errorf("undefined label '%s' on line %d", p.operand, p.lineNo)
			}
			in.Target = id
		case in.HasOperand():
			ref, err := parseRef(p.operand, p.lineNo)
			if err != nil {
				return nil, nil, err
			}
			in.Ref = ref
		default:
			if p.operand != "" {
				return nil, nil, fmt.Errorf("%s takes no operand on line %d", op, p.lineNo)
			}
		}

		sourceMap[len(program)] = p.lineNo
		program = append(program, in)
	}
	return program, sourceMap, nil
}

func parseLine(line string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line = stripComments(line)
	if line == "" {
		return p, nil
	}

	if strings.HasSuffix(line, ":") {
		label := strings.TrimSpace(strings.TrimSuffix(line, ":"))
		if !isLabelName(label) {
			return p, fmt.Errorf("invalid label '%s' on line %d", label, lineNo)
		}
		p.label = label
		return p, nil
	}

	fields := strings.Fields(line)
	p.mnemonic = strings.ToUpper(fields[0])
	switch len(fields) {
	case 1:
	case 2:
		p.operand = fields[1]
	default:
		return p, fmt.Errorf("too many operands on line %d", lineNo)
	}

	// Drawn comments have no effect on execution.
	if p.mnemonic == "COMMENT" {
		return parsedLine{lineNo: lineNo}, nil
	}
	return p, nil
}

// stripComments removes "--" comments and surrounding space.
func stripComments(line string) string {
	if idx := strings.Index(line, "--"); idx != -1 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// parseRef reads a cell operand: "3" or "[3]".
func parseRef(token string, lineNo int) (hrm.MemRef, error) {
	if token == "" {
		return hrm.MemRef{}, fmt.Errorf("missing operand on line %d", lineNo)
	}
	indirect := strings.HasPrefix(token, "[") && strings.HasSuffix(token, "]")
	if indirect {
		token = token[1 : len(token)-1]
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 {
		return hrm.MemRef{}, fmt.Errorf("invalid cell '%s' on line %d", token, lineNo)
	}
	if indirect {
		return hrm.Dereference(idx), nil
	}
	return hrm.FixedAddr(idx), nil
}

func isLabelName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
