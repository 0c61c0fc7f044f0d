package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable name
	INTEGER    // decimal integer literal
	LETTER     // letter literal 'A'

	// Keywords
	INBOX    // "inbox"
	OUTBOX   // "outbox"
	IF       // "if"
	ELSE     // "else"
	WHILE    // "while"
	BREAK    // "break"
	CONTINUE // "continue"
	RETURN   // "return"

	// Paired delimiters
	LBRACE // {
	RBRACE // }
	LPAREN // (
	RPAREN // )

	// Operators
	PLUS        // +
	MINUS       // -
	STAR        // * (dereference)
	PLUS_PLUS   // ++
	MINUS_MINUS // --
	AND_LOGICAL // &&
	OR_LOGICAL  // ||

	// Assignment / comparison  (order matters: ASSIGN before EQUALS)
	ASSIGN     // =
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	LESS_EQ    // <=
	GREATER    // >
	GREATER_EQ // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	INTEGER:     "INTEGER",
	LETTER:      "LETTER",
	INBOX:       "INBOX",
	OUTBOX:      "OUTBOX",
	IF:          "IF",
	ELSE:        "ELSE",
	WHILE:       "WHILE",
	BREAK:       "BREAK",
	CONTINUE:    "CONTINUE",
	RETURN:      "RETURN",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	STAR:        "STAR",
	PLUS_PLUS:   "PLUS_PLUS",
	MINUS_MINUS: "MINUS_MINUS",
	AND_LOGICAL: "AND_LOGICAL",
	OR_LOGICAL:  "OR_LOGICAL",
	ASSIGN:      "ASSIGN",
	EQUALS:      "EQUALS",
	NOT_EQ:      "NOT_EQ",
	LESS:        "LESS",
	LESS_EQ:     "LESS_EQ",
	GREATER:     "GREATER",
	GREATER_EQ:  "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched; the bare letter for LETTER
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
