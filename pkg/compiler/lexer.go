package compiler

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"inbox":    INBOX,
	"outbox":   OUTBOX,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"break":    BREAK,
	"continue": CONTINUE,
	"return":   RETURN,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// scanIdent collects a full identifier or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !isIdentRune(r) && !unicode.IsDigit(r) {
			break
		}
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

// scanInt collects a decimal integer literal.
// The first digit must still be at l.peek().
func (l *Lexer) scanInt() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	return Token{Type: INTEGER, Lexeme: string(l.src[start:l.pos]), Line: line}
}

// scanLetter collects a letter literal 'A'. Only uppercase ASCII letters
// exist on the machine.
func (l *Lexer) scanLetter() (Token, error) {
	line := l.line
	l.advance() // consume opening '

	r := l.peek()
	if r == '\'' {
		return Token{}, fmt.Errorf("empty letter literal on line %d", line)
	}
	if r < 'A' || r > 'Z' {
		return Token{}, fmt.Errorf("invalid letter literal %q on line %d: only 'A' to 'Z' are allowed", r, line)
	}
	l.advance()

	if l.peek() != '\'' {
		return Token{}, fmt.Errorf("unterminated letter literal on line %d", line)
	}
	l.advance() // consume closing '

	return Token{Type: LETTER, Lexeme: string(r), Line: line}, nil
}

// nextToken skips whitespace/comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Lexeme: "", Line: l.line}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		break
	}

	ch := l.peek()
	line := l.line

	if isIdentRune(ch) {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanInt(), nil
	}
	if ch == '\'' {
		return l.scanLetter()
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '{':
		return Token{LBRACE, "{", line}, nil
	case '}':
		return Token{RBRACE, "}", line}, nil
	case '(':
		return Token{LPAREN, "(", line}, nil
	case ')':
		return Token{RPAREN, ")", line}, nil
	case '*':
		return Token{STAR, "*", line}, nil
	case '+':
		if l.peek() == '+' {
			l.advance()
			return Token{PLUS_PLUS, "++", line}, nil
		}
		return Token{PLUS, "+", line}, nil
	case '-':
		if l.peek() == '-' {
			l.advance()
			return Token{MINUS_MINUS, "--", line}, nil
		}
		return Token{MINUS, "-", line}, nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{AND_LOGICAL, "&&", line}, nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{OR_LOGICAL, "||", line}, nil
		}
	case '!':
		if l.peek() == '=' {
			l.advance()
			return Token{NOT_EQ, "!=", line}, nil
		}
	case '<':
		if l.peek() == '=' {
			l.advance()
			return Token{LESS_EQ, "<=", line}, nil
		}
		return Token{LESS, "<", line}, nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return Token{GREATER_EQ, ">=", line}, nil
		}
		return Token{GREATER, ">", line}, nil
	case '=':
		if l.peek() == '=' { // lookahead: distinguish = vs ==
			l.advance()
			return Token{EQUALS, "==", line}, nil
		}
		return Token{ASSIGN, "=", line}, nil
	}
	return Token{}, fmt.Errorf("unexpected character %q on line %d", ch, line)
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil error on the first illegal character.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
