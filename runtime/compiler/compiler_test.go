package compiler

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/aledsdavies/pyx86/runtime/analyzer"
	"github.com/aledsdavies/pyx86/runtime/irgen"
	"github.com/aledsdavies/pyx86/runtime/lexer"
	"github.com/aledsdavies/pyx86/runtime/parser"
)

// TestCompileFactorialExample compiles the shipped example at every
// optimization level and checks the call surface of the output.
func TestCompileFactorialExample(t *testing.T) {
	source, err := os.ReadFile("../../examples/factorial.py")
	if err != nil {
		t.Fatalf("reading example: %v", err)
	}

	for level := 0; level <= 3; level++ {
		asm, err := New(level).Compile(string(source))
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}

		for _, want := range []string{
			".intel_syntax noprefix",
			".global main",
			"\nfactorial:",
			"\niterative_factorial:",
			"\nmain:",
			"call factorial",
			"call iterative_factorial",
			"mov rdi,",
			"leave",
		} {
			if !strings.Contains(asm, want) {
				t.Errorf("level %d: missing %q", level, want)
			}
		}
	}
}

// TestOptimizationLevels checks the concrete folding scenario end to end
func TestOptimizationLevels(t *testing.T) {
	source := "def f():\n    return 1 + 2\n"

	unoptimized, err := New(0).Compile(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(unoptimized, "add rax, rcx") {
		t.Errorf("-O0 lost the addition:\n%s", unoptimized)
	}

	optimized, err := New(2).Compile(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(optimized, "mov rax, 3") {
		t.Errorf("-O2 did not fold the addition:\n%s", optimized)
	}
	if strings.Contains(optimized, "add rax, rcx") {
		t.Errorf("-O2 kept the addition:\n%s", optimized)
	}
}

// TestStageErrors checks each failure class surfaces as its typed error
func TestStageErrors(t *testing.T) {
	t.Run("lex error", func(t *testing.T) {
		_, err := New(1).Compile("def f():\n    x = 1\n  y = 2\n")
		var lexErr *lexer.Error
		if !errors.As(err, &lexErr) {
			t.Fatalf("expected *lexer.Error, got %v (%T)", err, err)
		}
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := New(1).Compile("def f(:\n    pass\n")
		var parseErr *parser.ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *parser.ParseError, got %v (%T)", err, err)
		}
	})

	t.Run("semantic error", func(t *testing.T) {
		_, err := New(1).Compile("def f():\n    return y\n")
		var semErr *analyzer.Error
		if !errors.As(err, &semErr) {
			t.Fatalf("expected *analyzer.Error, got %v (%T)", err, err)
		}
		if !strings.Contains(err.Error(), "Variable 'y' used before assignment") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("lowering error", func(t *testing.T) {
		_, err := New(1).Compile("def f(a, b, c):\n    return a < b < c\n")
		var lowerErr *irgen.Error
		if !errors.As(err, &lowerErr) {
			t.Fatalf("expected *irgen.Error, got %v (%T)", err, err)
		}
	})
}

// TestIntermediateSurfaces checks the staged entry points Tokenize, Parse, and
// Lower.
func TestIntermediateSurfaces(t *testing.T) {
	source := "def f(x):\n    return x + 1\n"
	c := New(1)

	tokens, err := c.Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("no tokens")
	}

	program, err := c.Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(program.Body) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(program.Body))
	}

	irProgram, err := c.Lower(source)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(irProgram.Functions) != 1 || irProgram.Functions[0].Name != "f" {
		t.Fatalf("unexpected IR:\n%s", irProgram.Dump())
	}
}

// TestCompilerIsReusable checks repeated compiles produce identical output
func TestCompilerIsReusable(t *testing.T) {
	source := "def f(n):\n    while n > 1:\n        n -= 1\n    return n\n"
	c := New(3)

	first, err := c.Compile(source)
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	second, err := c.Compile(source)
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}

	if first != second {
		t.Error("repeated compilation produced different assembly")
	}
}
