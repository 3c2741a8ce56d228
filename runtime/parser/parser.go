package parser

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/pyx86/core/ast"
	"github.com/aledsdavies/pyx86/core/token"
)

// compareOps are the comparison operator spellings accepted in expressions.
var compareOps = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

// Parser is a recursive-descent parser over a lexed token stream. It is
// best-effort at statement level: a syntax error inside an expression
// statement skips to the next NEWLINE and parsing continues; errors inside
// block constructs propagate.
type Parser struct {
	tokens  []token.Token
	current int
	input   string // original source, for error snippets
}

// Parse parses a token stream into a Program. The source text is carried
// only for error reporting.
func Parse(tokens []token.Token, source string) (*ast.Program, error) {
	p := &Parser{tokens: tokens, input: source}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	program := &ast.Program{}

	for !p.isAtEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			program.Body = append(program.Body, stmt)
		}
	}

	return program, nil
}

// parseStatement parses one statement, or returns (nil, nil) for skipped
// newlines and recovered expression-statement errors.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.check(token.EOF, ""):
		return nil, nil
	case p.check(token.NEWLINE, ""):
		p.advance()
		return nil, nil
	case p.check(token.KEYWORD, "def"):
		return p.parseFunctionDef()
	case p.check(token.KEYWORD, "return"):
		return p.parseReturn()
	case p.check(token.KEYWORD, "if"):
		return p.parseIf()
	case p.check(token.KEYWORD, "while"):
		return p.parseWhile()
	case p.check(token.KEYWORD, "for"):
		return p.parseFor()
	case p.check(token.KEYWORD, "pass"):
		pos := p.pos()
		p.advance()
		if p.check(token.NEWLINE, "") {
			p.advance()
		}
		return &ast.Pass{Pos: pos}, nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseFunctionDef() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // def

	name, err := p.consume(token.IDENTIFIER, "expected function name")
	if err != nil {
		return nil, err
	}

	if _, err := p.consumeValue(token.PUNCTUATION, "(", "expected '('"); err != nil {
		return nil, err
	}

	var params []string
	if !p.check(token.PUNCTUATION, ")") {
		param, err := p.consume(token.IDENTIFIER, "expected parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, param.Value)

		for p.match(token.PUNCTUATION, ",") {
			param, err := p.consume(token.IDENTIFIER, "expected parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param.Value)
		}
	}

	if _, err := p.consumeValue(token.PUNCTUATION, ")", "expected ')'"); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionDef{Name: name.Value, Params: params, Body: body, Pos: pos}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // return

	if p.check(token.NEWLINE, "") {
		p.advance()
		return &ast.Return{Pos: pos}, nil
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.NEWLINE, "expected newline"); err != nil {
		return nil, err
	}
	return &ast.Return{Value: value, Pos: pos}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // if

	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var orelse []ast.Statement
	if p.check(token.KEYWORD, "else") {
		p.advance()
		orelse, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return &ast.If{Test: test, Body: body, Orelse: orelse, Pos: pos}, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // while

	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.While{Test: test, Body: body, Pos: pos}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	pos := p.pos()
	p.advance() // for

	target, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if name, ok := target.(*ast.Name); ok {
		name.Ctx = ast.Store
	}

	if _, err := p.consumeValue(token.KEYWORD, "in", "expected 'in'"); err != nil {
		return nil, err
	}

	iter, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.For{Target: target, Iter: iter, Body: body, Pos: pos}, nil
}

// parseBlock parses ':' NEWLINE INDENT statement+ DEDENT.
func (p *Parser) parseBlock() ([]ast.Statement, error) {
	if _, err := p.consumeValue(token.PUNCTUATION, ":", "expected ':'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.NEWLINE, "expected newline"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.INDENT, "expected indented block"); err != nil {
		return nil, err
	}

	var body []ast.Statement
	for !p.check(token.DEDENT, "") && !p.check(token.EOF, "") {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			body = append(body, stmt)
		}
	}

	if p.check(token.DEDENT, "") {
		p.advance()
	}

	return body, nil
}

// parseExpressionStatement parses expression, assignment, or augmented
// assignment statements. A syntax error here is recoverable: tokens are
// skipped up to the next NEWLINE and no statement is produced.
func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	pos := p.pos()

	expr, err := p.parseExpression()
	if err != nil {
		p.syncToNewline()
		return nil, nil
	}

	// Assignment
	if p.check(token.OPERATOR, "=") {
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			p.syncToNewline()
			return nil, nil
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		if name, ok := expr.(*ast.Name); ok {
			name.Ctx = ast.Store
		}
		return &ast.Assign{Targets: []ast.Expression{expr}, Value: value, Pos: pos}, nil
	}

	// Augmented assignment: any multi-character operator ending in '='
	if tok := p.peek(); tok.Type == token.OPERATOR && len(tok.Value) > 1 && strings.HasSuffix(tok.Value, "=") {
		op := tok.Value[:len(tok.Value)-1]
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			p.syncToNewline()
			return nil, nil
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		// The target keeps Load ctx: an augmented assignment reads the
		// current value before storing.
		return &ast.AugAssign{Target: expr, Op: op, Value: value, Pos: pos}, nil
	}

	if err := p.endStatement(); err != nil {
		p.syncToNewline()
		return nil, nil
	}
	return &ast.ExprStmt{Value: expr, Pos: pos}, nil
}

// endStatement consumes the statement's trailing newline, tolerating EOF.
func (p *Parser) endStatement() error {
	if p.check(token.NEWLINE, "") {
		p.advance()
		return nil
	}
	if p.check(token.EOF, "") {
		return nil
	}
	_, err := p.consume(token.NEWLINE, "expected newline")
	return err
}

// syncToNewline discards tokens up to and including the next NEWLINE.
func (p *Parser) syncToNewline() {
	for !p.check(token.NEWLINE, "") && !p.check(token.EOF, "") {
		p.advance()
	}
	if p.check(token.NEWLINE, "") {
		p.advance()
	}
}

// ================================================================================================
// EXPRESSIONS - precedence low to high: comparison, additive, multiplicative, unary, primary
// ================================================================================================

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	pos := p.pos()
	expr, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	if tok := p.peek(); tok.Type == token.OPERATOR && compareOps[tok.Value] {
		var ops []string
		var comparators []ast.Expression

		for p.peek().Type == token.OPERATOR && compareOps[p.peek().Value] {
			ops = append(ops, p.advance().Value)
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			comparators = append(comparators, right)
		}

		return &ast.Compare{Left: expr, Ops: ops, Comparators: comparators, Pos: pos}, nil
	}

	return expr, nil
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	expr, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == token.OPERATOR && (p.peek().Value == "+" || p.peek().Value == "-") {
		pos := p.pos()
		op := p.advance().Value
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		expr = &ast.BinOp{Left: expr, Op: op, Right: right, Pos: pos}
	}

	return expr, nil
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.peek().Type == token.OPERATOR &&
		(p.peek().Value == "*" || p.peek().Value == "/" || p.peek().Value == "%") {
		pos := p.pos()
		op := p.advance().Value
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		expr = &ast.BinOp{Left: expr, Op: op, Right: right, Pos: pos}
	}

	return expr, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.peek().Type == token.OPERATOR && (p.peek().Value == "-" || p.peek().Value == "+") {
		pos := p.pos()
		op := p.advance().Value
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: op, Operand: operand, Pos: pos}, nil
	}

	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	pos := p.pos()

	switch {
	case p.check(token.INTEGER, ""):
		tok := p.advance()
		value, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.newSyntaxError("invalid integer literal " + strconv.Quote(tok.Value))
		}
		return &ast.Constant{Kind: ast.IntLit, Int: value, Pos: pos}, nil

	case p.check(token.FLOAT, ""):
		tok := p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.newSyntaxError("invalid float literal " + strconv.Quote(tok.Value))
		}
		return &ast.Constant{Kind: ast.FloatLit, Float: value, Pos: pos}, nil

	case p.check(token.STRING, ""):
		tok := p.advance()
		// Strip the surrounding quotes
		return &ast.Constant{Kind: ast.StringLit, Str: tok.Value[1 : len(tok.Value)-1], Pos: pos}, nil

	case p.check(token.IDENTIFIER, ""):
		name := p.advance().Value
		if p.check(token.PUNCTUATION, "(") {
			return p.parseCall(name, pos)
		}
		return &ast.Name{ID: name, Ctx: ast.Load, Pos: pos}, nil

	case p.check(token.KEYWORD, "True"):
		p.advance()
		return &ast.Constant{Kind: ast.BoolLit, Bool: true, Pos: pos}, nil

	case p.check(token.KEYWORD, "False"):
		p.advance()
		return &ast.Constant{Kind: ast.BoolLit, Bool: false, Pos: pos}, nil

	case p.check(token.KEYWORD, "None"):
		p.advance()
		return &ast.Constant{Kind: ast.NoneLit, Pos: pos}, nil

	case p.check(token.PUNCTUATION, "("):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consumeValue(token.PUNCTUATION, ")", "expected ')'"); err != nil {
			return nil, err
		}
		return expr, nil

	default:
		return nil, p.newUnexpectedTokenError(p.peek())
	}
}

func (p *Parser) parseCall(name string, pos ast.Position) (ast.Expression, error) {
	p.advance() // (

	var args []ast.Expression
	if !p.check(token.PUNCTUATION, ")") {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		for p.match(token.PUNCTUATION, ",") {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}

	if _, err := p.consumeValue(token.PUNCTUATION, ")", "expected ')'"); err != nil {
		return nil, err
	}

	return &ast.Call{
		Func: &ast.Name{ID: name, Ctx: ast.Load, Pos: pos},
		Args: args,
		Pos:  pos,
	}, nil
}

// ================================================================================================
// TOKEN HELPERS
// ================================================================================================

func (p *Parser) consume(typ token.Type, message string) (token.Token, error) {
	if p.check(typ, "") {
		return p.advance(), nil
	}
	return token.Token{}, p.newMissingTokenError(message, p.peek())
}

func (p *Parser) consumeValue(typ token.Type, value, message string) (token.Token, error) {
	if p.check(typ, value) {
		return p.advance(), nil
	}
	return token.Token{}, p.newMissingTokenError(message, p.peek())
}

func (p *Parser) match(typ token.Type, value string) bool {
	if p.check(typ, value) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(typ token.Type, value string) bool {
	if p.current >= len(p.tokens) {
		return false
	}
	return p.peek().Is(typ, value)
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) peek() token.Token {
	if p.current >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) pos() ast.Position {
	return ast.Position{Line: p.peek().Line, Column: p.peek().Column}
}
