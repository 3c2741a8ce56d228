package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree in the indented record form used by --dump-ast.
// Each node prints as Name( field=value ... ) with child statements and
// expressions on their own lines.
func Dump(node Node) string {
	var sb strings.Builder
	dumpNode(&sb, node, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, node Node, indent int) {
	pad := strings.Repeat("  ", indent)
	if node == nil {
		sb.WriteString(pad + "None\n")
		return
	}

	switch n := node.(type) {
	case *Program:
		sb.WriteString(pad + "Program(\n")
		dumpStmts(sb, "body", n.Body, indent+1)
		sb.WriteString(pad + ")\n")
	case *FunctionDef:
		sb.WriteString(pad + "FunctionDef(\n")
		sb.WriteString(pad + "  name=" + n.Name + "\n")
		sb.WriteString(pad + "  params=[" + strings.Join(n.Params, ", ") + "]\n")
		dumpStmts(sb, "body", n.Body, indent+1)
		sb.WriteString(pad + ")\n")
	case *Return:
		sb.WriteString(pad + "Return(\n")
		dumpField(sb, "value", n.Value, indent+1)
		sb.WriteString(pad + ")\n")
	case *Assign:
		sb.WriteString(pad + "Assign(\n")
		dumpExprs(sb, "targets", n.Targets, indent+1)
		dumpField(sb, "value", n.Value, indent+1)
		sb.WriteString(pad + ")\n")
	case *AugAssign:
		sb.WriteString(pad + "AugAssign(\n")
		dumpField(sb, "target", n.Target, indent+1)
		sb.WriteString(pad + "  op=" + n.Op + "\n")
		dumpField(sb, "value", n.Value, indent+1)
		sb.WriteString(pad + ")\n")
	case *For:
		sb.WriteString(pad + "For(\n")
		dumpField(sb, "target", n.Target, indent+1)
		dumpField(sb, "iter", n.Iter, indent+1)
		dumpStmts(sb, "body", n.Body, indent+1)
		sb.WriteString(pad + ")\n")
	case *While:
		sb.WriteString(pad + "While(\n")
		dumpField(sb, "test", n.Test, indent+1)
		dumpStmts(sb, "body", n.Body, indent+1)
		sb.WriteString(pad + ")\n")
	case *If:
		sb.WriteString(pad + "If(\n")
		dumpField(sb, "test", n.Test, indent+1)
		dumpStmts(sb, "body", n.Body, indent+1)
		if len(n.Orelse) > 0 {
			dumpStmts(sb, "orelse", n.Orelse, indent+1)
		}
		sb.WriteString(pad + ")\n")
	case *Pass:
		sb.WriteString(pad + "Pass()\n")
	case *ExprStmt:
		dumpNode(sb, n.Value, indent)
	case *BinOp:
		sb.WriteString(pad + "BinOp(\n")
		dumpField(sb, "left", n.Left, indent+1)
		sb.WriteString(pad + "  op=" + n.Op + "\n")
		dumpField(sb, "right", n.Right, indent+1)
		sb.WriteString(pad + ")\n")
	case *UnaryOp:
		sb.WriteString(pad + "UnaryOp(\n")
		sb.WriteString(pad + "  op=" + n.Op + "\n")
		dumpField(sb, "operand", n.Operand, indent+1)
		sb.WriteString(pad + ")\n")
	case *Call:
		sb.WriteString(pad + "Call(\n")
		dumpField(sb, "func", n.Func, indent+1)
		dumpExprs(sb, "args", n.Args, indent+1)
		sb.WriteString(pad + ")\n")
	case *Compare:
		sb.WriteString(pad + "Compare(\n")
		dumpField(sb, "left", n.Left, indent+1)
		sb.WriteString(pad + "  ops=[" + strings.Join(n.Ops, ", ") + "]\n")
		dumpExprs(sb, "comparators", n.Comparators, indent+1)
		sb.WriteString(pad + ")\n")
	case *Constant:
		sb.WriteString(pad + "Constant(" + n.String() + ")\n")
	case *Name:
		sb.WriteString(pad + fmt.Sprintf("Name(%s, %s)\n", n.ID, n.Ctx))
	default:
		sb.WriteString(pad + n.String() + "\n")
	}
}

func dumpField(sb *strings.Builder, name string, value Node, indent int) {
	pad := strings.Repeat("  ", indent)
	sb.WriteString(pad + name + "=\n")
	dumpNode(sb, value, indent+1)
}

func dumpStmts(sb *strings.Builder, name string, stmts []Statement, indent int) {
	pad := strings.Repeat("  ", indent)
	sb.WriteString(pad + name + "=[\n")
	for _, s := range stmts {
		dumpNode(sb, s, indent+1)
	}
	sb.WriteString(pad + "]\n")
}

func dumpExprs(sb *strings.Builder, name string, exprs []Expression, indent int) {
	pad := strings.Repeat("  ", indent)
	sb.WriteString(pad + name + "=[\n")
	for _, e := range exprs {
		dumpNode(sb, e, indent+1)
	}
	sb.WriteString(pad + "]\n")
}
