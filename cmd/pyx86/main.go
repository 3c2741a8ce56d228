package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/pyx86/core/ast"
	"github.com/aledsdavies/pyx86/runtime/analyzer"
	"github.com/aledsdavies/pyx86/runtime/codegen"
	"github.com/aledsdavies/pyx86/runtime/irgen"
	"github.com/aledsdavies/pyx86/runtime/lexer"
	"github.com/aledsdavies/pyx86/runtime/optimizer"
	"github.com/aledsdavies/pyx86/runtime/parser"
)

// Exit code constants
const (
	ExitSuccess          = 0
	ExitInvalidArguments = 1
	ExitIOError          = 2
	ExitParseError       = 3
	ExitSemanticError    = 4
	ExitGenerationError  = 5
)

func main() {
	var (
		outputFile string
		optLevel   int
		dumpTokens bool
		dumpAST    bool
		dumpIR     bool
	)

	rootCmd := &cobra.Command{
		Use:           "pyx86 <input-file>",
		Short:         "Compile a Python subset to x86-64 assembly",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if optLevel < 0 || optLevel > 3 {
				return fmt.Errorf("invalid optimization level %d (expected 0-3)", optLevel)
			}
			return run(args[0], outputFile, optLevel, dumpTokens, dumpAST, dumpIR)
		},
	}

	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output assembly file (default: stdout)")
	rootCmd.Flags().IntVarP(&optLevel, "optimize", "O", 1, "Optimization level (0-3)")
	rootCmd.Flags().BoolVar(&dumpTokens, "dump-tokens", false, "Dump the token stream")
	rootCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "Dump the AST")
	rootCmd.Flags().BoolVar(&dumpIR, "dump-ir", false, "Dump the intermediate representation")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// run executes the pipeline stage by stage so the dump flags can surface
// each intermediate form along the way.
func run(inputFile, outputFile string, optLevel int, dumpTokens, dumpAST, dumpIR bool) error {
	source, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}

	tokens, err := lexer.New().Tokenize(string(source))
	if err != nil {
		return err
	}

	if dumpTokens {
		fmt.Println("=== TOKENS ===")
		for _, tok := range tokens {
			fmt.Println(tok.String())
		}
		fmt.Println()
	}

	program, err := parser.Parse(tokens, string(source))
	if err != nil {
		return err
	}

	if dumpAST {
		fmt.Println("=== AST ===")
		fmt.Print(ast.Dump(program))
		fmt.Println()
	}

	if _, err := analyzer.New().Analyze(program); err != nil {
		return err
	}

	irProgram, err := irgen.New().Generate(program)
	if err != nil {
		return err
	}

	optimized := optimizer.New(optLevel).Optimize(irProgram)

	if dumpIR {
		fmt.Println("=== IR ===")
		fmt.Print(optimized.Dump())
		fmt.Println()
	}

	assembly := codegen.New().Generate(optimized)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(assembly), 0o644); err != nil {
			return err
		}
		fmt.Printf("Assembly code written to %s\n", outputFile)
		return nil
	}

	fmt.Println(assembly)
	return nil
}

// exitCodeFor maps a failure to the process exit code.
func exitCodeFor(err error) int {
	var (
		pathErr  *os.PathError
		lexErr   *lexer.Error
		parseErr *parser.ParseError
		semErr   *analyzer.Error
		lowerErr *irgen.Error
	)

	switch {
	case errors.As(err, &pathErr):
		return ExitIOError
	case errors.As(err, &lexErr), errors.As(err, &parseErr):
		return ExitParseError
	case errors.As(err, &semErr):
		return ExitSemanticError
	case errors.As(err, &lowerErr):
		return ExitGenerationError
	default:
		return ExitInvalidArguments
	}
}
