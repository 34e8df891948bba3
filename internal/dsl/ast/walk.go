package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *ValueNode:
		if x.Map != nil {
			return []Node{x.Map}
		}

		return nil
	case *Block:
		out := make([]Node, 0, len(x.Entries))
		for _, entry := range x.Entries {
			out = append(out, entry.Value)
		}

		return out
	case *List:
		out := make([]Node, 0, len(x.Items))
		for _, item := range x.Items {
			out = append(out, item)
		}

		return out
	case *FunctionCall:
		return x.Args
	case *Assignment:
		return []Node{x.Expr}
	case *Binary:
		return []Node{x.Left, x.Right}
	case *Strategy:
		out := make([]Node, 0, len(x.Blocks))
		for _, block := range x.Blocks {
			out = append(out, block)
		}

		return out
	case *Root:
		out := make([]Node, 0, 3)
		if x.Config != nil {
			out = append(out, x.Config)
		}

		if x.Data != nil {
			out = append(out, x.Data)
		}

		if x.Strategy != nil {
			out = append(out, x.Strategy)
		}

		return out
	default:
		return nil
	}
}

// Walk visits n depth first. Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// FunctionNames returns the names of every function called under n, in first-use order.
func FunctionNames(n Node) []string {
	seen := map[string]bool{}
	names := []string{}

	Walk(n, func(node Node) bool {
		if call, ok := node.(*FunctionCall); ok && !seen[call.Name] {
			seen[call.Name] = true
			names = append(names, call.Name)
		}

		return true
	})

	return names
}

// Print renders n as an indented tree. Equal trees print identically.
func Print(n Node) string {
	var sb strings.Builder
	printNode(&sb, n, 0)

	return sb.String()
}

func printNode(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch x := n.(type) {
	case *ValueNode:
		if x.Literal == LiteralMap {
			sb.WriteString(indent + "Map\n")
			printNode(sb, x.Map, depth+1)

			return
		}

		sb.WriteString(indent + "Value " + literalString(x) + "\n")
	case *Block:
		sb.WriteString(fmt.Sprintf("%sBlock %s\n", indent, x.Type))

		for _, entry := range x.Entries {
			sb.WriteString(indent + "  " + entry.Key + ":\n")
			printNode(sb, entry.Value, depth+2)
		}
	case *List:
		sb.WriteString(indent + "List\n")

		for _, item := range x.Items {
			printNode(sb, item, depth+1)
		}
	case *FunctionCall:
		sb.WriteString(indent + "Call " + x.Name + "\n")

		for _, arg := range x.Args {
			printNode(sb, arg, depth+1)
		}
	case *Assignment:
		sb.WriteString(indent + "Assign " + x.Name + "\n")
		printNode(sb, x.Expr, depth+1)
	case *Binary:
		sb.WriteString(fmt.Sprintf("%s%s %s (%s)\n", indent, x.Tier, x.Operator, x.Origin))
		printNode(sb, x.Left, depth+1)
		printNode(sb, x.Right, depth+1)
	case *Action:
		quantity := "all"
		if !x.All {
			quantity = "none"
			if x.Quantity.IsSome() {
				quantity = strconv.FormatFloat(x.Quantity.Unwrap(), 'g', -1, 64)
			}
		}

		sb.WriteString(fmt.Sprintf("%sAction %s %s\n", indent, x.Type, quantity))
	case *Strategy:
		sb.WriteString(indent + "Strategy " + x.Name + "\n")

		for _, block := range x.Blocks {
			printNode(sb, block, depth+1)
		}
	case *Root:
		sb.WriteString(indent + "Root\n")

		for _, child := range Children(x) {
			printNode(sb, child, depth+1)
		}
	case nil:
		sb.WriteString(indent + "<nil>\n")
	}
}

func literalString(n *ValueNode) string {
	switch n.Literal {
	case LiteralNumber:
		return strconv.FormatFloat(n.Number, 'g', -1, 64)
	case LiteralBool:
		return strconv.FormatBool(n.Bool)
	case LiteralDate:
		return "date " + n.Text
	default:
		return strconv.Quote(n.Text)
	}
}
