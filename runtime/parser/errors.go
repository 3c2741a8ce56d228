package parser

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/pyx86/core/token"
)

// ParseError represents a parsing error with location and context information
type ParseError struct {
	Type    ErrorType
	Message string
	Token   token.Token
	Input   string
}

// ErrorType represents different categories of parsing errors
type ErrorType int

const (
	ErrorSyntax ErrorType = iota
	ErrorUnexpected
	ErrorMissing
)

func (e ErrorType) String() string {
	switch e {
	case ErrorSyntax:
		return "syntax error"
	case ErrorUnexpected:
		return "unexpected token"
	case ErrorMissing:
		return "missing"
	default:
		return "error"
	}
}

// Error returns the formatted error message with line/column and code snippet
func (e *ParseError) Error() string {
	snippet := e.createCodeSnippet()
	if snippet == "" {
		return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s\n%s", e.Type.String(), e.Message, snippet)
}

// createCodeSnippet creates a code snippet showing the error location
func (e *ParseError) createCodeSnippet() string {
	if e.Input == "" || e.Token.Line == 0 {
		return ""
	}

	lines := strings.Split(strings.ReplaceAll(e.Input, "\r\n", "\n"), "\n")
	if e.Token.Line > len(lines) {
		return ""
	}

	lineContent := lines[e.Token.Line-1]

	var snippet strings.Builder
	snippet.WriteString(fmt.Sprintf("  --> %d:%d\n", e.Token.Line, e.Token.Column))
	snippet.WriteString("   |\n")
	snippet.WriteString(fmt.Sprintf("%2d | %s\n", e.Token.Line, lineContent))
	snippet.WriteString("   | ")
	if e.Token.Column >= 0 && e.Token.Column <= len(lineContent) {
		snippet.WriteString(strings.Repeat(" ", e.Token.Column) + "^")
	}

	return snippet.String()
}

// newSyntaxError creates a syntax error at the current token
func (p *Parser) newSyntaxError(message string) error {
	return &ParseError{
		Type:    ErrorSyntax,
		Message: message,
		Token:   p.peek(),
		Input:   p.input,
	}
}

// newUnexpectedTokenError creates an error for unexpected tokens
func (p *Parser) newUnexpectedTokenError(got token.Token) error {
	return &ParseError{
		Type:    ErrorUnexpected,
		Message: fmt.Sprintf("%s %q", got.Type.String(), got.Value),
		Token:   got,
		Input:   p.input,
	}
}

// newMissingTokenError creates an error for missing expected tokens
func (p *Parser) newMissingTokenError(expected string, got token.Token) error {
	return &ParseError{
		Type:    ErrorMissing,
		Message: fmt.Sprintf("%s, got %s %q", expected, got.Type.String(), got.Value),
		Token:   got,
		Input:   p.input,
	}
}
