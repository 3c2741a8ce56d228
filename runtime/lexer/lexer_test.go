package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aledsdavies/pyx86/core/token"
)

// TestTokenizeSimpleFunction checks the full token stream for a small
// function, including layout tokens and positions.
func TestTokenizeSimpleFunction(t *testing.T) {
	input := "def f():\n    return 1 + 2\n"

	want := []token.Token{
		{Type: token.KEYWORD, Value: "def", Line: 1, Column: 0},
		{Type: token.IDENTIFIER, Value: "f", Line: 1, Column: 4},
		{Type: token.PUNCTUATION, Value: "(", Line: 1, Column: 5},
		{Type: token.PUNCTUATION, Value: ")", Line: 1, Column: 6},
		{Type: token.PUNCTUATION, Value: ":", Line: 1, Column: 7},
		{Type: token.NEWLINE, Value: "\n", Line: 1, Column: 8},
		{Type: token.INDENT, Line: 2, Column: 0},
		{Type: token.KEYWORD, Value: "return", Line: 2, Column: 4},
		{Type: token.INTEGER, Value: "1", Line: 2, Column: 11},
		{Type: token.OPERATOR, Value: "+", Line: 2, Column: 13},
		{Type: token.INTEGER, Value: "2", Line: 2, Column: 15},
		{Type: token.NEWLINE, Value: "\n", Line: 2, Column: 16},
		{Type: token.DEDENT, Line: 3, Column: 0},
		{Type: token.EOF, Line: 3, Column: 0},
	}

	got, err := New().Tokenize(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

// TestTokenizeLiterals tests literal token classification
func TestTokenizeLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		typ   token.Type
		value string
	}{
		{name: "integer", input: "42", typ: token.INTEGER, value: "42"},
		{name: "zero", input: "0", typ: token.INTEGER, value: "0"},
		{name: "float", input: "3.14", typ: token.FLOAT, value: "3.14"},
		{name: "float with trailing dot", input: "2.", typ: token.FLOAT, value: "2."},
		{name: "double quoted string", input: `"hello world"`, typ: token.STRING, value: `"hello world"`},
		{name: "single quoted string", input: "'hi'", typ: token.STRING, value: "'hi'"},
		{name: "string with escape", input: `"a\"b"`, typ: token.STRING, value: `"a\"b"`},
		{name: "identifier", input: "counter", typ: token.IDENTIFIER, value: "counter"},
		{name: "underscore identifier", input: "_tmp1", typ: token.IDENTIFIER, value: "_tmp1"},
		{name: "keyword def", input: "def", typ: token.KEYWORD, value: "def"},
		{name: "keyword True", input: "True", typ: token.KEYWORD, value: "True"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New().Tokenize(tt.input + "\n")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// literal, NEWLINE, EOF
			if len(tokens) != 3 {
				t.Fatalf("expected 3 tokens, got %d: %v", len(tokens), tokens)
			}
			if tokens[0].Type != tt.typ || tokens[0].Value != tt.value {
				t.Errorf("got %s %q, want %s %q", tokens[0].Type, tokens[0].Value, tt.typ, tt.value)
			}
		})
	}
}

// TestTokenizeOperators tests the full operator surface, including compound
// assignments and the bare **, // and bit operators the parser later rejects.
func TestTokenizeOperators(t *testing.T) {
	ops := []string{
		"+", "-", "*", "/", "%", "**", "//",
		"==", "!=", "<", ">", "<=", ">=", "=",
		"+=", "-=", "*=", "/=", "%=", "**=", "//=",
		"&=", "|=", "^=", ">>=", "<<=",
		"&", "|", "^", "~", "<<", ">>",
	}

	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			tokens, err := New().Tokenize("x " + op + " y\n")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tokens[1].Type != token.OPERATOR || tokens[1].Value != op {
				t.Errorf("got %s %q, want OPERATOR %q", tokens[1].Type, tokens[1].Value, op)
			}
		})
	}
}

// TestInvalidOperatorRun checks that an operator run outside the allowed set
// fails instead of being silently dropped.
func TestInvalidOperatorRun(t *testing.T) {
	_, err := New().Tokenize("x === y\n")
	if err == nil {
		t.Fatal("expected error for invalid operator run")
	}

	var lexErr *Error
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lexErr.Line != 1 {
		t.Errorf("expected error on line 1, got %d", lexErr.Line)
	}
}

// TestCommentsAndBlankLines verifies comments and blank lines vanish without
// affecting indentation
func TestCommentsAndBlankLines(t *testing.T) {
	input := strings.Join([]string{
		"# leading comment",
		"def f():",
		"",
		"    # indented comment",
		"    return 0  # trailing comment",
		"",
	}, "\n")

	tokens, err := New().Tokenize(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []token.Type
	for _, tok := range tokens {
		kinds = append(kinds, tok.Type)
	}

	want := []token.Type{
		token.KEYWORD, token.IDENTIFIER, token.PUNCTUATION, token.PUNCTUATION,
		token.PUNCTUATION, token.NEWLINE,
		token.INDENT, token.KEYWORD, token.INTEGER, token.NEWLINE,
		token.DEDENT, token.EOF,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("token kinds mismatch (-want +got):\n%s", diff)
	}
}

// TestCRLFNormalization verifies Windows line endings lex identically
func TestCRLFNormalization(t *testing.T) {
	unix, err := New().Tokenize("def f():\n    pass\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	windows, err := New().Tokenize("def f():\r\n    pass\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(unix, windows); diff != "" {
		t.Errorf("CRLF input lexed differently (-unix +windows):\n%s", diff)
	}
}

// TestEmptySource checks that blank input yields a bare EOF
func TestEmptySource(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n", "  \n\t\n"} {
		tokens, err := New().Tokenize(input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		want := []token.Token{{Type: token.EOF, Line: 1, Column: 0}}
		if diff := cmp.Diff(want, tokens); diff != "" {
			t.Errorf("tokens for %q mismatch (-want +got):\n%s", input, diff)
		}
	}
}

// TestIndentDedentBalance checks the universal stream invariants: exactly one
// EOF at the end and balanced INDENT/DEDENT pairs.
func TestIndentDedentBalance(t *testing.T) {
	input := strings.Join([]string{
		"def f(n):",
		"    if n:",
		"        while n:",
		"            n -= 1",
		"    return n",
		"def g():",
		"    pass",
	}, "\n") + "\n"

	tokens, err := New().Tokenize(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	indents, dedents, eofs := 0, 0, 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.INDENT:
			indents++
		case token.DEDENT:
			dedents++
		case token.EOF:
			eofs++
		}
	}

	if indents != dedents {
		t.Errorf("unbalanced layout: %d INDENT vs %d DEDENT", indents, dedents)
	}
	if eofs != 1 {
		t.Errorf("expected exactly one EOF, got %d", eofs)
	}
	if tokens[len(tokens)-1].Type != token.EOF {
		t.Errorf("stream does not end with EOF")
	}
}

// TestInconsistentIndentation tests dedents that match no open indent level
func TestInconsistentIndentation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{
			name:     "partial dedent",
			input:    "def f():\n    x = 1\n  y = 2\n",
			wantLine: 3,
		},
		{
			name:     "tab after spaces",
			input:    "def f():\n    x = 1\n\ty = 2\n",
			wantLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Tokenize(tt.input)
			if err == nil {
				t.Fatal("expected inconsistent indentation error")
			}

			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if lexErr.Line != tt.wantLine {
				t.Errorf("error line = %d, want %d", lexErr.Line, tt.wantLine)
			}
			if !strings.Contains(lexErr.Error(), "inconsistent indentation") {
				t.Errorf("unexpected message: %v", lexErr)
			}
		})
	}
}

// TestUnrecognizedCharacter checks the error position for stray characters
func TestUnrecognizedCharacter(t *testing.T) {
	_, err := New().Tokenize("x = $\n")
	if err == nil {
		t.Fatal("expected error for unrecognized character")
	}

	var lexErr *Error
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lexErr.Line != 1 || lexErr.Column != 4 || lexErr.Char != '$' {
		t.Errorf("got line %d col %d char %q, want line 1 col 4 char '$'",
			lexErr.Line, lexErr.Column, lexErr.Char)
	}
}

// TestUnterminatedString checks unterminated strings fail at the open quote
func TestUnterminatedString(t *testing.T) {
	_, err := New().Tokenize("x = \"oops\n")
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}

	var lexErr *Error
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lexErr.Column != 4 {
		t.Errorf("error column = %d, want 4", lexErr.Column)
	}
}
