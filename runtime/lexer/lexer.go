package lexer

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aledsdavies/pyx86/core/token"
)

// ASCII character lookup tables for fast classification
var (
	isDigit      [128]bool
	isIdentStart [128]bool
	isIdentPart  [128]bool
	isOperator   [128]bool // characters that can form an operator run
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}
	for _, ch := range []byte("+-*/%=<>!&|^~") {
		isOperator[ch] = true
	}
}

// Error is a lexical error with its source location.
type Error struct {
	Line    int
	Column  int
	Char    byte // offending character, 0 for indentation errors
	Message string
}

func (e *Error) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("%s at line %d, column %d: %q", e.Message, e.Line, e.Column, string(e.Char))
	}
	return fmt.Sprintf("%s at line %d", e.Message, e.Line)
}

// Lexer tokenizes indentation-delimited source text. The lexer is
// line-oriented: indentation is measured per line against a stack of open
// indent levels, and every non-empty line ends with a NEWLINE token.
type Lexer struct {
	logger *slog.Logger
}

// New creates a new Lexer.
func New() *Lexer {
	logLevel := slog.LevelInfo
	if os.Getenv("PYX86_DEBUG_LEXER") != "" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Strip timestamp and level for cleaner trace output
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	return &Lexer{logger: logger}
}

// Tokenize converts source text into a token stream. The stream always ends
// with exactly one EOF token, and every INDENT has a matching later DEDENT.
func (l *Lexer) Tokenize(source string) ([]token.Token, error) {
	var tokens []token.Token

	if strings.TrimSpace(source) == "" {
		tokens = append(tokens, token.Token{Type: token.EOF, Line: 1, Column: 0})
		return tokens, nil
	}

	// Normalize line endings
	source = strings.ReplaceAll(source, "\r\n", "\n")

	lines := strings.Split(source, "\n")
	indentStack := []int{0}
	lineNum := 0

	for i, line := range lines {
		lineNum = i + 1

		// Skip empty or comment-only lines entirely; they do not affect
		// indentation.
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		stripped := strings.TrimRight(line, " \t\r\n")
		indent := len(stripped) - len(strings.TrimLeft(stripped, " \t"))

		// Tabs and spaces both count as one column each; no tab expansion.
		if indent > indentStack[len(indentStack)-1] {
			tokens = append(tokens, token.Token{Type: token.INDENT, Line: lineNum, Column: 0})
			indentStack = append(indentStack, indent)
		} else {
			for indent < indentStack[len(indentStack)-1] {
				indentStack = indentStack[:len(indentStack)-1]
				tokens = append(tokens, token.Token{Type: token.DEDENT, Line: lineNum, Column: 0})
			}
			if indent != indentStack[len(indentStack)-1] {
				return nil, &Error{Line: lineNum, Message: "inconsistent indentation"}
			}
		}

		l.logger.Debug("line", "num", lineNum, "indent", indent, "depth", len(indentStack))

		lineTokens, col, err := l.scanLine(stripped[indent:], lineNum, indent)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, lineTokens...)

		tokens = append(tokens, token.Token{Type: token.NEWLINE, Value: "\n", Line: lineNum, Column: col})
	}

	// Close any open indentation at end of file
	for len(indentStack) > 1 {
		indentStack = indentStack[:len(indentStack)-1]
		tokens = append(tokens, token.Token{Type: token.DEDENT, Line: lineNum, Column: 0})
	}

	tokens = append(tokens, token.Token{Type: token.EOF, Line: lineNum, Column: 0})

	l.logger.Debug("tokenized", "tokens", len(tokens), "lines", lineNum)
	return tokens, nil
}

// scanLine tokenizes the content of one line after its indentation. It
// applies longest-match over the pattern order: whitespace, comment, float,
// integer, string, identifier/keyword, operator run, punctuation. Returns the
// tokens and the column where scanning stopped: after the final token, or at
// the start of a trailing comment.
func (l *Lexer) scanLine(content string, line, startCol int) ([]token.Token, int, error) {
	var tokens []token.Token
	col := startCol
	pos := 0

	for pos < len(content) {
		ch := content[pos]

		switch {
		case ch == ' ' || ch == '\t':
			n := 1
			for pos+n < len(content) && (content[pos+n] == ' ' || content[pos+n] == '\t') {
				n++
			}
			pos += n
			col += n

		case ch == '#':
			// Comment runs to end of line
			return tokens, col, nil

		case ch < 128 && isDigit[ch]:
			n := 1
			for pos+n < len(content) && content[pos+n] < 128 && isDigit[content[pos+n]] {
				n++
			}
			typ := token.INTEGER
			if pos+n < len(content) && content[pos+n] == '.' {
				typ = token.FLOAT
				n++
				for pos+n < len(content) && content[pos+n] < 128 && isDigit[content[pos+n]] {
					n++
				}
			}
			tokens = append(tokens, token.Token{Type: typ, Value: content[pos : pos+n], Line: line, Column: col})
			pos += n
			col += n

		case ch == '"' || ch == '\'':
			n, ok := scanString(content[pos:], ch)
			if !ok {
				return nil, col, &Error{Line: line, Column: col, Char: ch, Message: "invalid syntax"}
			}
			tokens = append(tokens, token.Token{Type: token.STRING, Value: content[pos : pos+n], Line: line, Column: col})
			pos += n
			col += n

		case ch < 128 && isIdentStart[ch]:
			n := 1
			for pos+n < len(content) && content[pos+n] < 128 && isIdentPart[content[pos+n]] {
				n++
			}
			word := content[pos : pos+n]
			typ := token.IDENTIFIER
			if token.Keywords[word] {
				typ = token.KEYWORD
			}
			tokens = append(tokens, token.Token{Type: typ, Value: word, Line: line, Column: col})
			pos += n
			col += n

		case ch < 128 && isOperator[ch]:
			n := 1
			for pos+n < len(content) && content[pos+n] < 128 && isOperator[content[pos+n]] {
				n++
			}
			op := content[pos : pos+n]
			if !token.Operators[op] {
				return nil, col, &Error{Line: line, Column: col, Char: ch, Message: "invalid syntax"}
			}
			tokens = append(tokens, token.Token{Type: token.OPERATOR, Value: op, Line: line, Column: col})
			pos += n
			col += n

		case token.Punctuation[ch]:
			tokens = append(tokens, token.Token{Type: token.PUNCTUATION, Value: string(ch), Line: line, Column: col})
			pos++
			col++

		default:
			return nil, col, &Error{Line: line, Column: col, Char: ch, Message: "invalid syntax"}
		}
	}

	return tokens, col, nil
}

// scanString measures a quoted string with simple backslash escapes,
// including the quotes. Returns false if the string is unterminated.
func scanString(s string, quote byte) (int, bool) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++ // skip escaped character
		case quote:
			return i + 1, true
		}
	}
	return 0, false
}
