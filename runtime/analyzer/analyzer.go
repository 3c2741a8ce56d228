package analyzer

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/pyx86/core/ast"
)

// builtinFunctions are callable without a definition in scope.
var builtinFunctions = map[string]bool{
	"print": true, "len": true, "int": true, "float": true,
	"str": true, "range": true, "input": true,
}

// builtinConstants are loadable without a definition in scope.
var builtinConstants = map[string]bool{
	"True": true, "False": true, "None": true,
}

// Error is the accumulated result of a failed semantic analysis.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "semantic analysis failed:\n" + strings.Join(e.Messages, "\n")
}

// Scope is one frame of the lexical scope chain.
type Scope struct {
	symbols map[string]string // name -> category (function, parameter, variable)
	parent  *Scope
}

// NewScope creates a scope with the given parent (nil for the global scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{symbols: make(map[string]string), parent: parent}
}

// Define records a name in this scope.
func (s *Scope) Define(name, category string) {
	s.symbols[name] = category
}

// Contains reports whether the name resolves in this scope or any parent.
func (s *Scope) Contains(name string) bool {
	if _, ok := s.symbols[name]; ok {
		return true
	}
	if s.parent != nil {
		return s.parent.Contains(name)
	}
	return false
}

// Analyzer walks the AST populating nested lexical scopes and accumulating
// errors. All errors are collected before analysis fails; traversal is never
// aborted early.
type Analyzer struct {
	globalScope  *Scope
	currentScope *Scope
	errors       []string
}

// New creates a new Analyzer.
func New() *Analyzer {
	global := NewScope(nil)
	return &Analyzer{globalScope: global, currentScope: global}
}

// Analyze checks the program and returns it unchanged, or an *Error carrying
// every collected message.
func (a *Analyzer) Analyze(program *ast.Program) (*ast.Program, error) {
	for _, stmt := range program.Body {
		a.checkStatement(stmt)
	}

	if len(a.errors) > 0 {
		return nil, &Error{Messages: a.errors}
	}
	return program, nil
}

func (a *Analyzer) errorf(format string, args ...any) {
	a.errors = append(a.errors, fmt.Sprintf(format, args...))
}

// inScope runs fn inside a fresh child scope.
func (a *Analyzer) inScope(fn func()) {
	previous := a.currentScope
	a.currentScope = NewScope(previous)
	fn()
	a.currentScope = previous
}

func (a *Analyzer) checkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		a.globalScope.Define(s.Name, "function")
		a.inScope(func() {
			for _, param := range s.Params {
				a.currentScope.Define(param, "parameter")
			}
			for _, inner := range s.Body {
				a.checkStatement(inner)
			}
		})

	case *ast.Return:
		if s.Value != nil {
			a.checkExpression(s.Value)
		}

	case *ast.Assign:
		a.checkExpression(s.Value)
		for _, target := range s.Targets {
			if name, ok := target.(*ast.Name); ok {
				if !a.currentScope.Contains(name.ID) {
					a.currentScope.Define(name.ID, "variable")
				}
			} else {
				a.checkExpression(target)
			}
		}

	case *ast.AugAssign:
		a.checkExpression(s.Value)
		if name, ok := s.Target.(*ast.Name); ok {
			if !a.currentScope.Contains(name.ID) {
				a.errorf("Variable '%s' used before assignment", name.ID)
			}
		} else {
			a.checkExpression(s.Target)
		}

	case *ast.For:
		a.checkExpression(s.Iter)
		a.inScope(func() {
			if name, ok := s.Target.(*ast.Name); ok {
				a.currentScope.Define(name.ID, "variable")
			} else {
				a.checkExpression(s.Target)
			}
			for _, inner := range s.Body {
				a.checkStatement(inner)
			}
		})

	case *ast.While:
		a.checkExpression(s.Test)
		a.inScope(func() {
			for _, inner := range s.Body {
				a.checkStatement(inner)
			}
		})

	case *ast.If:
		a.checkExpression(s.Test)
		a.inScope(func() {
			for _, inner := range s.Body {
				a.checkStatement(inner)
			}
		})
		if len(s.Orelse) > 0 {
			a.inScope(func() {
				for _, inner := range s.Orelse {
					a.checkStatement(inner)
				}
			})
		}

	case *ast.ExprStmt:
		a.checkExpression(s.Value)

	case *ast.Pass:
		// nothing to check
	}
}

func (a *Analyzer) checkExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.BinOp:
		a.checkExpression(e.Left)
		a.checkExpression(e.Right)

	case *ast.UnaryOp:
		a.checkExpression(e.Operand)

	case *ast.Call:
		if name, ok := e.Func.(*ast.Name); ok {
			if !a.globalScope.Contains(name.ID) && !a.currentScope.Contains(name.ID) &&
				!builtinFunctions[name.ID] {
				a.errorf("Function '%s' is not defined", name.ID)
			}
		} else {
			a.checkExpression(e.Func)
		}
		for _, arg := range e.Args {
			a.checkExpression(arg)
		}

	case *ast.Compare:
		a.checkExpression(e.Left)
		for _, comparator := range e.Comparators {
			a.checkExpression(comparator)
		}

	case *ast.Name:
		if e.Ctx == ast.Load && !a.currentScope.Contains(e.ID) && !builtinConstants[e.ID] {
			a.errorf("Variable '%s' used before assignment", e.ID)
		}

	case *ast.Constant:
		// literals are always valid
	}
}
