// Package compiler provides the lexer, parser, code generator and peephole
// optimizer that turn hrmc source into instructions for the office-robot
// machine in package hrm.
//
// Pipeline: source → ParseHeader → Lex → Parse → Generate → Optimize → []hrm.Instruction
package compiler
