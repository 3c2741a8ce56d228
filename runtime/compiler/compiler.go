package compiler

import (
	"github.com/aledsdavies/pyx86/core/ast"
	"github.com/aledsdavies/pyx86/core/ir"
	"github.com/aledsdavies/pyx86/core/token"
	"github.com/aledsdavies/pyx86/runtime/analyzer"
	"github.com/aledsdavies/pyx86/runtime/codegen"
	"github.com/aledsdavies/pyx86/runtime/irgen"
	"github.com/aledsdavies/pyx86/runtime/lexer"
	"github.com/aledsdavies/pyx86/runtime/optimizer"
	"github.com/aledsdavies/pyx86/runtime/parser"
)

// Compiler wires the full pipeline: lex, parse, analyze, lower, optimize,
// emit. Each Compile call runs the stages front to back; no state is shared
// between invocations beyond the stage instances themselves, which reset
// their counters per run.
type Compiler struct {
	lexer     *lexer.Lexer
	irgen     *irgen.Generator
	optimizer *optimizer.Optimizer
	codegen   *codegen.Generator
}

// New creates a Compiler with the given optimization level (0-3).
func New(optimizationLevel int) *Compiler {
	return &Compiler{
		lexer:     lexer.New(),
		irgen:     irgen.New(),
		optimizer: optimizer.New(optimizationLevel),
		codegen:   codegen.New(),
	}
}

// Compile translates source text into assembly text.
func (c *Compiler) Compile(source string) (string, error) {
	program, err := c.Lower(source)
	if err != nil {
		return "", err
	}
	optimized := c.optimizer.Optimize(program)
	return c.codegen.Generate(optimized), nil
}

// Tokenize runs only the lexer.
func (c *Compiler) Tokenize(source string) ([]token.Token, error) {
	return c.lexer.Tokenize(source)
}

// Parse runs the lexer and parser.
func (c *Compiler) Parse(source string) (*ast.Program, error) {
	tokens, err := c.lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return parser.Parse(tokens, source)
}

// Analyze runs the front end through semantic analysis.
func (c *Compiler) Analyze(source string) (*ast.Program, error) {
	program, err := c.Parse(source)
	if err != nil {
		return nil, err
	}
	return analyzer.New().Analyze(program)
}

// Lower runs the front end and IR generation, without optimization.
func (c *Compiler) Lower(source string) (*ir.Program, error) {
	program, err := c.Analyze(source)
	if err != nil {
		return nil, err
	}
	return c.irgen.Generate(program)
}
