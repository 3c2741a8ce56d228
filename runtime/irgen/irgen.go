package irgen

import (
	"fmt"

	"github.com/aledsdavies/pyx86/core/ast"
	"github.com/aledsdavies/pyx86/core/ir"
)

// Error is a lowering failure: the AST contains a construct the IR cannot
// express.
type Error struct {
	Message string
	Pos     ast.Position
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("lowering error at line %d: %s", e.Pos.Line, e.Message)
	}
	return "lowering error: " + e.Message
}

// Generator lowers an AST to an IR program. Only statements inside function
// definitions are lowered; top-level statements outside functions are
// accepted but produce no IR.
type Generator struct {
	program      *ir.Program
	currentFunc  *ir.Function
	currentBlock *ir.Block
	tempCounter  int
	labelCounter int

	// Per-function result-name bookkeeping. Specialized constant temps share
	// the %t namespace with counter temps, so every handed-out result name is
	// recorded and never reissued for a different value.
	usedResults   map[string]bool
	specialConsts map[string]int64

	// Exit blocks of enclosing loops, innermost last. Nothing consumes this
	// yet; it is the hook a break/continue lowering would pop from.
	loopExitStack []*ir.Block
}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// Generate lowers a program. Counters are reset per invocation, so a single
// Generator can be reused across compilations.
func (g *Generator) Generate(program *ast.Program) (*ir.Program, error) {
	g.program = &ir.Program{}
	g.tempCounter = 0
	g.labelCounter = 0
	g.loopExitStack = nil

	for _, stmt := range program.Body {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		if err := g.lowerFunction(fn); err != nil {
			return nil, err
		}
	}

	return g.program, nil
}

func (g *Generator) lowerFunction(node *ast.FunctionDef) error {
	entry := &ir.Block{Label: node.Name + "_entry"}
	fn := &ir.Function{
		Name:   node.Name,
		Params: node.Params,
		Entry:  entry,
		Blocks: []*ir.Block{entry},
	}

	g.program.Functions = append(g.program.Functions, fn)
	g.currentFunc = fn
	g.currentBlock = entry
	g.usedResults = make(map[string]bool)
	g.specialConsts = make(map[string]int64)

	for _, param := range node.Params {
		fn.AddLocal(param)
	}

	for _, stmt := range node.Body {
		if err := g.lowerStatement(stmt); err != nil {
			return err
		}
	}

	// Every function body ends with at least one ret
	if n := len(g.currentBlock.Instructions); n == 0 || g.currentBlock.Instructions[n-1].Op != ir.OpRet {
		g.emit(ir.OpRet, nil, "")
	}

	g.currentFunc = nil
	g.currentBlock = nil
	return nil
}

func (g *Generator) lowerStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Return:
		if s.Value != nil {
			value, err := g.lowerExpression(s.Value)
			if err != nil {
				return err
			}
			g.emit(ir.OpRet, []ir.Value{ir.Name(value)}, "")
		} else {
			g.emit(ir.OpRet, nil, "")
		}
		return nil

	case *ast.Assign:
		value, err := g.lowerExpression(s.Value)
		if err != nil {
			return err
		}
		for _, target := range s.Targets {
			name, ok := target.(*ast.Name)
			if !ok {
				return &Error{Message: fmt.Sprintf("assignment to %T not implemented", target), Pos: s.Pos}
			}
			g.currentFunc.AddLocal(name.ID)
			g.emit(ir.OpStore, []ir.Value{ir.Name(value), ir.Name(name.ID)}, "")
		}
		return nil

	case *ast.AugAssign:
		target, err := g.lowerExpression(s.Target)
		if err != nil {
			return err
		}
		value, err := g.lowerExpression(s.Value)
		if err != nil {
			return err
		}

		result := g.temp()
		g.emit(ir.OpBinop, []ir.Value{ir.Name(s.Op), ir.Name(target), ir.Name(value)}, result)

		name, ok := s.Target.(*ast.Name)
		if !ok {
			return &Error{Message: fmt.Sprintf("augmented assignment to %T not implemented", s.Target), Pos: s.Pos}
		}
		g.currentFunc.AddLocal(name.ID)
		g.emit(ir.OpStore, []ir.Value{ir.Name(result), ir.Name(name.ID)}, "")
		return nil

	case *ast.If:
		return g.lowerIf(s)

	case *ast.While:
		return g.lowerWhile(s)

	case *ast.For:
		return g.lowerFor(s)

	case *ast.ExprStmt:
		_, err := g.lowerExpression(s.Value)
		return err

	case *ast.Pass:
		return nil

	case *ast.FunctionDef:
		return &Error{Message: "nested function definitions not implemented", Pos: s.Pos}

	default:
		return &Error{Message: fmt.Sprintf("IR generation not implemented for %T", stmt)}
	}
}

// lowerIf lowers a conditional. The branch falls through to a then block and
// either an else block or the merge block; both arms jump to merge.
func (g *Generator) lowerIf(node *ast.If) error {
	cond, err := g.lowerExpression(node.Test)
	if err != nil {
		return err
	}

	thenBlock := &ir.Block{Label: g.label("if_then")}
	mergeBlock := &ir.Block{Label: g.label("if_merge")}
	g.currentFunc.Blocks = append(g.currentFunc.Blocks, thenBlock, mergeBlock)

	if len(node.Orelse) > 0 {
		elseBlock := &ir.Block{Label: g.label("if_else")}
		g.currentFunc.Blocks = append(g.currentFunc.Blocks, elseBlock)

		g.emit(ir.OpBranch, []ir.Value{ir.Name(cond), ir.Name(thenBlock.Label), ir.Name(elseBlock.Label)}, "")
		g.currentBlock.NextBlock = thenBlock
		g.currentBlock.BranchTarget = elseBlock

		g.currentBlock = thenBlock
		for _, stmt := range node.Body {
			if err := g.lowerStatement(stmt); err != nil {
				return err
			}
		}
		g.emit(ir.OpJump, []ir.Value{ir.Name(mergeBlock.Label)}, "")

		g.currentBlock = elseBlock
		for _, stmt := range node.Orelse {
			if err := g.lowerStatement(stmt); err != nil {
				return err
			}
		}
		g.emit(ir.OpJump, []ir.Value{ir.Name(mergeBlock.Label)}, "")
	} else {
		g.emit(ir.OpBranch, []ir.Value{ir.Name(cond), ir.Name(thenBlock.Label), ir.Name(mergeBlock.Label)}, "")
		g.currentBlock.NextBlock = thenBlock
		g.currentBlock.BranchTarget = mergeBlock

		g.currentBlock = thenBlock
		for _, stmt := range node.Body {
			if err := g.lowerStatement(stmt); err != nil {
				return err
			}
		}
		g.emit(ir.OpJump, []ir.Value{ir.Name(mergeBlock.Label)}, "")
	}

	g.currentBlock = mergeBlock
	return nil
}

// lowerWhile lowers a while loop: the preceding block jumps into the
// condition block, which branches to the body or the exit.
func (g *Generator) lowerWhile(node *ast.While) error {
	condBlock := &ir.Block{Label: g.label("while_cond")}
	bodyBlock := &ir.Block{Label: g.label("while_body")}
	exitBlock := &ir.Block{Label: g.label("while_exit")}
	g.currentFunc.Blocks = append(g.currentFunc.Blocks, condBlock, bodyBlock, exitBlock)

	g.currentBlock.NextBlock = condBlock
	condBlock.NextBlock = bodyBlock
	condBlock.BranchTarget = exitBlock
	bodyBlock.NextBlock = condBlock

	g.loopExitStack = append(g.loopExitStack, exitBlock)

	g.emit(ir.OpJump, []ir.Value{ir.Name(condBlock.Label)}, "")
	g.currentBlock = condBlock
	cond, err := g.lowerExpression(node.Test)
	if err != nil {
		return err
	}
	g.emit(ir.OpBranch, []ir.Value{ir.Name(cond), ir.Name(bodyBlock.Label), ir.Name(exitBlock.Label)}, "")

	g.currentBlock = bodyBlock
	for _, stmt := range node.Body {
		if err := g.lowerStatement(stmt); err != nil {
			return err
		}
	}
	g.emit(ir.OpJump, []ir.Value{ir.Name(condBlock.Label)}, "")

	g.loopExitStack = g.loopExitStack[:len(g.loopExitStack)-1]
	g.currentBlock = exitBlock
	return nil
}

// lowerFor lowers iteration as an indexed loop: the iterable is evaluated
// once, an index temp counts from zero, and the condition block compares the
// index against len of the iterable. The body loads the current item with
// getitem before running the loop statements.
func (g *Generator) lowerFor(node *ast.For) error {
	target, ok := node.Target.(*ast.Name)
	if !ok {
		return &Error{Message: "for loop target must be a name", Pos: node.Pos}
	}

	iterValue, err := g.lowerExpression(node.Iter)
	if err != nil {
		return err
	}

	initBlock := g.currentBlock
	condBlock := &ir.Block{Label: g.label("for_cond")}
	bodyBlock := &ir.Block{Label: g.label("for_body")}
	exitBlock := &ir.Block{Label: g.label("for_exit")}
	g.currentFunc.Blocks = append(g.currentFunc.Blocks, condBlock, bodyBlock, exitBlock)

	initBlock.NextBlock = condBlock
	condBlock.NextBlock = bodyBlock
	condBlock.BranchTarget = exitBlock
	bodyBlock.NextBlock = condBlock

	g.loopExitStack = append(g.loopExitStack, exitBlock)

	indexVar := g.temp()
	g.currentFunc.AddLocal(target.ID)
	g.emit(ir.OpConst, []ir.Value{ir.Int(0)}, indexVar)

	g.emit(ir.OpJump, []ir.Value{ir.Name(condBlock.Label)}, "")
	g.currentBlock = condBlock
	iterLen := g.temp()
	g.emit(ir.OpLen, []ir.Value{ir.Name(iterValue)}, iterLen)

	condResult := g.temp()
	g.emit(ir.OpCompare, []ir.Value{ir.Name("<"), ir.Name(indexVar), ir.Name(iterLen)}, condResult)
	g.emit(ir.OpBranch, []ir.Value{ir.Name(condResult), ir.Name(bodyBlock.Label), ir.Name(exitBlock.Label)}, "")

	g.currentBlock = bodyBlock
	item := g.temp()
	g.emit(ir.OpGetItem, []ir.Value{ir.Name(iterValue), ir.Name(indexVar)}, item)
	g.emit(ir.OpStore, []ir.Value{ir.Name(item), ir.Name(target.ID)}, "")

	for _, stmt := range node.Body {
		if err := g.lowerStatement(stmt); err != nil {
			return err
		}
	}

	g.emit(ir.OpBinop, []ir.Value{ir.Name("+"), ir.Name(indexVar), ir.Int(1)}, indexVar)
	g.emit(ir.OpJump, []ir.Value{ir.Name(condBlock.Label)}, "")

	g.loopExitStack = g.loopExitStack[:len(g.loopExitStack)-1]
	g.currentBlock = exitBlock
	return nil
}

// lowerExpression lowers an expression and returns the name of the virtual
// register holding its value.
func (g *Generator) lowerExpression(expr ast.Expression) (string, error) {
	switch e := expr.(type) {
	case *ast.BinOp:
		left, err := g.lowerExpression(e.Left)
		if err != nil {
			return "", err
		}
		right, err := g.lowerExpression(e.Right)
		if err != nil {
			return "", err
		}
		result := g.temp()
		g.emit(ir.OpBinop, []ir.Value{ir.Name(e.Op), ir.Name(left), ir.Name(right)}, result)
		return result, nil

	case *ast.UnaryOp:
		operand, err := g.lowerExpression(e.Operand)
		if err != nil {
			return "", err
		}
		result := g.temp()
		g.emit(ir.OpUnop, []ir.Value{ir.Name(e.Op), ir.Name(operand)}, result)
		return result, nil

	case *ast.Call:
		name, ok := e.Func.(*ast.Name)
		if !ok {
			return "", &Error{Message: fmt.Sprintf("call to %T not implemented", e.Func), Pos: e.Pos}
		}

		args := []ir.Value{ir.Name(name.ID)}
		for _, arg := range e.Args {
			value, err := g.lowerExpression(arg)
			if err != nil {
				return "", err
			}
			args = append(args, ir.Name(value))
		}

		result := g.temp()
		g.emit(ir.OpCall, args, result)
		return result, nil

	case *ast.Compare:
		if len(e.Ops) != 1 || len(e.Comparators) != 1 {
			return "", &Error{Message: "multiple comparisons not implemented", Pos: e.Pos}
		}

		left, err := g.lowerExpression(e.Left)
		if err != nil {
			return "", err
		}
		right, err := g.lowerExpression(e.Comparators[0])
		if err != nil {
			return "", err
		}

		result := g.temp()
		g.emit(ir.OpCompare, []ir.Value{ir.Name(e.Ops[0]), ir.Name(left), ir.Name(right)}, result)
		return result, nil

	case *ast.Constant:
		return g.lowerConstant(e), nil

	case *ast.Name:
		if e.Ctx == ast.Load {
			result := g.temp()
			g.emit(ir.OpLoad, []ir.Value{ir.Name(e.ID)}, result)
			return result, nil
		}
		// Store context: the statement visitor handles the write; the name
		// itself is the value.
		return e.ID, nil

	default:
		return "", &Error{Message: fmt.Sprintf("IR generation not implemented for %T", expr)}
	}
}

// lowerConstant emits a const instruction and returns its register. Small
// non-negative int constants get the specialized name %t<value>, which lets
// codegen recover the literal from the register name alone. Codegen relies on
// this naming. A specialized name already taken by a different result in the
// same function falls back to an ordinary temp; one taken by an equal
// constant is reused.
func (g *Generator) lowerConstant(node *ast.Constant) string {
	switch node.Kind {
	case ast.IntLit:
		result := g.temp()
		if node.Int >= 0 && node.Int <= 100 {
			name := fmt.Sprintf("%%t%d", node.Int)
			if name == result {
				g.specialConsts[name] = node.Int
			} else if value, ok := g.specialConsts[name]; ok && value == node.Int {
				result = name
			} else if !g.usedResults[name] {
				g.usedResults[name] = true
				g.specialConsts[name] = node.Int
				result = name
			}
		}
		g.emit(ir.OpConst, []ir.Value{ir.Int(node.Int)}, result)
		return result
	case ast.FloatLit:
		result := g.temp()
		g.emit(ir.OpConst, []ir.Value{ir.Float(node.Float)}, result)
		return result
	case ast.BoolLit:
		result := g.temp()
		g.emit(ir.OpConst, []ir.Value{ir.Bool(node.Bool)}, result)
		return result
	case ast.StringLit:
		result := g.temp()
		g.emit(ir.OpConst, []ir.Value{ir.String(node.Str)}, result)
		return result
	default: // None lowers to 0
		result := g.temp()
		g.emit(ir.OpConst, []ir.Value{ir.Int(0)}, result)
		return result
	}
}

func (g *Generator) temp() string {
	for {
		name := fmt.Sprintf("%%t%d", g.tempCounter)
		g.tempCounter++
		if !g.usedResults[name] {
			g.usedResults[name] = true
			return name
		}
	}
}

func (g *Generator) label(prefix string) string {
	name := fmt.Sprintf("%s_%d", prefix, g.labelCounter)
	g.labelCounter++
	return name
}

func (g *Generator) emit(op ir.Opcode, args []ir.Value, result string) {
	g.currentBlock.Instructions = append(g.currentBlock.Instructions, ir.Instruction{
		Op:     op,
		Args:   args,
		Result: result,
	})
}
