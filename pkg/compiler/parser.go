package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program = stmt* EOF
//	stmt    = "outbox" "(" expr ")"
//	        | "if" "(" cond ")" block ["else" (block | ifStmt)]
//	        | "while" ["(" cond ")"] block
//	        | "break" | "continue" | "return"
//	        | block | expr
//	block   = "{" stmt* "}"
//	expr    = term (("+" | "-") term)*
//	term    = INTEGER | "-" INTEGER | LETTER | "(" expr ")" | "inbox" "(" ")"
//	        | IDENTIFIER ["=" expr] | "*" IDENTIFIER ["=" expr]
//	        | ("++" | "--") ["*"] IDENTIFIER
//	cond    = andCond ("||" andCond)*
//	andCond = atom ("&&" atom)*
//	atom    = "(" cond ")" | expr CMP expr
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError wraps an error message with the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return fmt.Errorf("line %d: %s\n  |> %s", tok.Line, msg, snippet)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

// parseStatement dispatches on the leading token.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {

	case LBRACE:
		p.advance()
		return p.parseBlock()

	case IF:
		p.advance()
		return p.parseIf()

	case WHILE:
		p.advance()
		return p.parseWhile()

	case OUTBOX:
		p.advance()
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &OutboxStmt{Value: value}, nil

	case BREAK:
		p.advance()
		return &BreakStmt{}, nil

	case CONTINUE:
		p.advance()
		return &ContinueStmt{}, nil

	case RETURN:
		p.advance()
		return &ReturnStmt{}, nil

	case EOF:
		return nil, p.fmtError(tok, "unexpected end of input")

	default:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: expr}, nil
	}
}

// parseBlock parses the statements up to and including the closing brace.
// The opening LBRACE has already been consumed.
func (p *Parser) parseBlock() (*BlockStmt, error) {
	stmts := []Stmt{}
	for p.peek().Type != RBRACE && p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return &BlockStmt{Stmts: stmts}, nil
}

// expectBlock parses a mandatory braced body.
func (p *Parser) expectBlock() (*BlockStmt, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	return p.parseBlock()
}

// parseIf parses if ( cond ) { body } [ else { body } | else if ... ]
// The leading IF token has already been consumed by parseStatement.
func (p *Parser) parseIf() (Stmt, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.expectBlock()
	if err != nil {
		return nil, err
	}

	stmt := &IfStmt{Cond: cond, Body: body}
	if p.peek().Type != ELSE {
		return stmt, nil
	}
	p.advance()
	if p.peek().Type == IF {
		p.advance()
		stmt.ElseBody, err = p.parseIf()
	} else {
		stmt.ElseBody, err = p.expectBlock()
	}
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseWhile parses while [( cond )] { body }
// The leading WHILE token has already been consumed by parseStatement.
func (p *Parser) parseWhile() (Stmt, error) {
	stmt := &WhileStmt{}
	if p.peek().Type == LPAREN {
		p.advance()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		stmt.Cond = cond
	}
	body, err := p.expectBlock()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

// parseExpression handles left-associative + and -.
func (p *Parser) parseExpression() (Expr, error) {
	expr, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := p.advance().Type
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

func (p *Parser) parseTerm() (Expr, error) {
	tok := p.advance()
	switch tok.Type {

	case INTEGER:
		return p.intLiteral(tok, tok.Lexeme)

	case MINUS:
		num, err := p.expect(INTEGER)
		if err != nil {
			return nil, err
		}
		return p.intLiteral(num, "-"+num.Lexeme)

	case LETTER:
		return &LetterLiteral{Value: []rune(tok.Lexeme)[0]}, nil

	case LPAREN:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case INBOX:
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &InboxExpr{}, nil

	case IDENTIFIER:
		if p.peek().Type != ASSIGN {
			return &VarRef{Name: tok.Lexeme}, nil
		}
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &Assign{Name: tok.Lexeme, Value: value}, nil

	case STAR:
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if p.peek().Type != ASSIGN {
			return &MemRead{Pointer: name.Lexeme}, nil
		}
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &MemWrite{Pointer: name.Lexeme, Value: value}, nil

	case PLUS_PLUS, MINUS_MINUS:
		deref := false
		if p.peek().Type == STAR {
			p.advance()
			deref = true
		}
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		return &IncDec{Op: tok.Type, Name: name.Lexeme, Deref: deref}, nil
	}
	return nil, p.fmtError(tok, "unexpected token %s (%q)", tok.Type, tok.Lexeme)
}

func (p *Parser) intLiteral(tok Token, text string) (Expr, error) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, p.fmtError(tok, "invalid integer %q", text)
	}
	return &IntLiteral{Value: n}, nil
}

// parseCondition handles || (lowest precedence).
func (p *Parser) parseCondition() (Cond, error) {
	cond, err := p.parseAndCondition()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR_LOGICAL {
		op := p.advance().Type
		right, err := p.parseAndCondition()
		if err != nil {
			return nil, err
		}
		cond = &LogicalCond{Op: op, Left: cond, Right: right}
	}
	return cond, nil
}

// parseAndCondition handles &&
func (p *Parser) parseAndCondition() (Cond, error) {
	cond, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND_LOGICAL {
		op := p.advance().Type
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		cond = &LogicalCond{Op: op, Left: cond, Right: right}
	}
	return cond, nil
}

var compareOps = map[TokenType]CompareOp{
	EQUALS:     Equal,
	NOT_EQ:     NotEqual,
	LESS:       Less,
	LESS_EQ:    LessEq,
	GREATER:    Greater,
	GREATER_EQ: GreaterEq,
}

// parseAtom parses a parenthesised condition or a single comparison.
// "(a + b) < c" and "(a < b)" both start with "(", so the condition
// reading is tried first and the parser rewinds when it does not fit.
func (p *Parser) parseAtom() (Cond, error) {
	if p.peek().Type == LPAREN {
		start := p.pos
		p.advance()
		if cond, err := p.parseCondition(); err == nil {
			if _, err := p.expect(RPAREN); err == nil {
				if _, isCmp := compareOps[p.peek().Type]; !isCmp && p.peek().Type != PLUS && p.peek().Type != MINUS {
					return cond, nil
				}
			}
		}
		p.pos = start
	}

	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	tok := p.advance()
	op, ok := compareOps[tok.Type]
	if !ok {
		return nil, p.fmtError(tok, "expected comparison operator, got %s (%q)", tok.Type, tok.Lexeme)
	}
	right, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Compare{Op: op, Left: left, Right: right}, nil
}

// Parse builds the statement list for a whole program.
func Parse(tokens []Token, rawSource string) ([]Stmt, error) {
	p := NewParser(tokens, rawSource)
	stmts := []Stmt{}
	for p.peek().Type != EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}
