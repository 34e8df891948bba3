// Package interpreter evaluates strategy syntax trees against an Environment.
package interpreter

import (
	"context"

	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-dsl/internal/dsl/ast"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/ops"
	"github.com/rxtech-lab/argo-dsl/internal/dsl/value"
	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// Eval evaluates node against env.
func Eval(node ast.Node, env *Environment) (value.Value, error) {
	return EvalContext(context.Background(), node, env)
}

// EvalContext evaluates node against env. ctx bounds market data loads triggered by data lists.
func EvalContext(ctx context.Context, node ast.Node, env *Environment) (value.Value, error) {
	if env == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "evaluation requires an environment")
	}

	switch n := node.(type) {
	case *ast.ValueNode:
		return evalValue(n, env)
	case *ast.FunctionCall:
		return evalCall(ctx, n, env)
	case *ast.Assignment:
		return evalAssignment(ctx, n, env)
	case *ast.Binary:
		return evalBinary(ctx, n, env)
	case *ast.Action:
		return actionValue(n), nil
	case *ast.Block:
		return evalBlock(ctx, n, env)
	case *ast.List:
		return evalDataList(ctx, n, env)
	case *ast.Strategy:
		return evalStrategy(ctx, n, env)
	case *ast.Root:
		return evalRoot(ctx, n, env)
	case nil:
		return nil, errors.New(errors.ErrCodeNotEvaluable, "cannot evaluate an empty node")
	default:
		return nil, errors.Newf(errors.ErrCodeNotEvaluable, "cannot evaluate %s node", node.Kind())
	}
}

// locate attaches the node position to err unless it already carries one.
func locate(err error, pos ast.Pos) error {
	var e *errors.Error
	if !errors.As(err, &e) {
		return errors.NewAt(errors.ErrCodeUnknown, pos.Line, pos.Column, "%v", err)
	}

	if e.Line != 0 {
		return err
	}

	return e.At(pos.Line, pos.Column)
}

func evalValue(n *ast.ValueNode, env *Environment) (value.Value, error) {
	switch n.Literal {
	case ast.LiteralNumber:
		return value.Number(n.Number), nil
	case ast.LiteralBool:
		return value.Bool(n.Bool), nil
	case ast.LiteralDate:
		return value.Text(n.Text), nil
	case ast.LiteralText:
		if v, ok := env.Resolve(n.Text); ok {
			return v, nil
		}

		return value.Text(n.Text), nil
	default:
		return nil, errors.NewAt(errors.ErrCodeNotEvaluable, n.Pos.Line, n.Pos.Column, "Nested map cannot be evaluated as a value")
	}
}

// literal returns the value of a call argument as written.
func literal(n *ast.ValueNode) (value.Value, error) {
	switch n.Literal {
	case ast.LiteralNumber:
		return value.Number(n.Number), nil
	case ast.LiteralBool:
		return value.Bool(n.Bool), nil
	case ast.LiteralText, ast.LiteralDate:
		return value.Text(n.Text), nil
	default:
		return nil, errors.NewAt(errors.ErrCodeNotEvaluable, n.Pos.Line, n.Pos.Column, "Nested map cannot be passed to a function")
	}
}

func evalCall(ctx context.Context, n *ast.FunctionCall, env *Environment) (value.Value, error) {
	args := make([]value.Value, 0, len(n.Args))

	for _, arg := range n.Args {
		var (
			v   value.Value
			err error
		)

		if lit, ok := arg.(*ast.ValueNode); ok {
			v, err = literal(lit)
		} else {
			v, err = EvalContext(ctx, arg, env)
		}

		if err != nil {
			return nil, err
		}

		args = append(args, v)
	}

	fn, err := env.Functions.GetIndicator(n.Name)
	if err != nil {
		return nil, errors.NewAt(errors.ErrCodeFunctionNotFound, n.Pos.Line, n.Pos.Column, "Function '%s' is not defined", n.Name)
	}

	result, err := fn(args, env.Variables)
	if err != nil {
		return nil, locate(err, n.Pos)
	}

	return value.Numbers(result), nil
}

func evalAssignment(ctx context.Context, n *ast.Assignment, env *Environment) (value.Value, error) {
	v, err := EvalContext(ctx, n.Expr, env)
	if err != nil {
		return nil, err
	}

	env.Variables[n.Name] = v
	env.Logger.Debug("assigned", zap.String("name", n.Name), zap.Int("length", value.Len(v)))

	return v, nil
}

func evalBinary(ctx context.Context, n *ast.Binary, env *Environment) (value.Value, error) {
	left, err := EvalContext(ctx, n.Left, env)
	if err != nil {
		return nil, err
	}

	right, err := EvalContext(ctx, n.Right, env)
	if err != nil {
		return nil, err
	}

	result, err := ops.Apply(left, right, string(n.Operator))
	if err != nil {
		return nil, locate(err, n.Pos)
	}

	return result, nil
}

// actionValue describes an action as [type] or [type, quantity|"all"].
func actionValue(n *ast.Action) value.Value {
	out := value.List{value.Text(n.Type)}

	switch {
	case n.All:
		out = append(out, value.Text("all"))
	case n.Quantity.IsSome():
		out = append(out, value.Number(n.Quantity.Unwrap()))
	}

	return out
}

func evalBlock(ctx context.Context, n *ast.Block, env *Environment) (value.Value, error) {
	switch n.Type {
	case ast.BlockParameters:
		return flatten(ctx, n, env, nil)
	case ast.BlockConfig, ast.BlockNested:
		return flatten(ctx, n, env, env.Config)
	case ast.BlockIndicators:
		return evalIndicators(ctx, n, env)
	case ast.BlockEntry:
		return evalRule(ctx, n, env, VariableEntry)
	case ast.BlockExit:
		return evalRule(ctx, n, env, VariableExit)
	case ast.BlockData:
		return loadData(ctx, n, env)
	default:
		return nil, errors.NewAt(errors.ErrCodeNotEvaluable, n.Pos.Line, n.Pos.Column, "cannot evaluate block '%s'", n.Type)
	}
}

// flatten walks a parameters or config block. Numbers go to Variables and booleans to Flags.
// Nested maps are walked recursively and their keys are used without a prefix.
// When sink is non-nil every scalar, text included, is also recorded there.
func flatten(ctx context.Context, n *ast.Block, env *Environment, sink map[string]value.Value) (value.Value, error) {
	out := make(value.List, 0, len(n.Entries))

	for _, entry := range n.Entries {
		switch node := entry.Value.(type) {
		case *ast.ValueNode:
			if node.Literal == ast.LiteralMap {
				nested, err := flatten(ctx, node.Map, env, sink)
				if err != nil {
					return nil, err
				}

				out = append(out, nested)

				continue
			}

			v, err := literal(node)
			if err != nil {
				return nil, err
			}

			switch x := v.(type) {
			case value.Number:
				env.Variables[entry.Key] = x
			case value.Bool:
				env.Flags[entry.Key] = bool(x)
			}

			if sink != nil {
				sink[entry.Key] = v
			}

			out = append(out, v)
		default:
			v, err := EvalContext(ctx, node, env)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}
	}

	return out, nil
}

func evalIndicators(ctx context.Context, n *ast.Block, env *Environment) (value.Value, error) {
	out := make(value.List, 0, len(n.Entries))

	for _, entry := range n.Entries {
		v, err := EvalContext(ctx, entry.Value, env)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

func evalRule(ctx context.Context, n *ast.Block, env *Environment, target string) (value.Value, error) {
	condition, ok := n.Get("Conditions")
	if !ok {
		return nil, errors.NewAt(errors.ErrCodeMissingBlock, n.Pos.Line, n.Pos.Column, "Block '%s' requires a when clause", n.Type)
	}

	v, err := EvalContext(ctx, condition, env)
	if err != nil {
		return nil, err
	}

	if !value.IsBoolean(v) {
		pos := condition.Position()

		return nil, errors.NewAt(errors.ErrCodeInvalidType, pos.Line, pos.Column, "Block '%s' condition must be boolean, got %s", n.Type, v.Kind())
	}

	env.Variables[target] = v

	return v, nil
}

// strategyOrder is the order strategy blocks evaluate in, regardless of source order.
var strategyOrder = []ast.BlockKind{
	ast.BlockParameters,
	ast.BlockConfig,
	ast.BlockData,
	ast.BlockIndicators,
	ast.BlockEntry,
	ast.BlockExit,
}

// evalStrategy evaluates the strategy body and returns the block results in evaluation order.
func evalStrategy(ctx context.Context, n *ast.Strategy, env *Environment) (value.Value, error) {
	out := make(value.List, 0, len(n.Blocks))

	for _, kind := range strategyOrder {
		block, ok := n.Block(kind)
		if !ok {
			continue
		}

		env.Logger.Debug("evaluating block", zap.String("strategy", n.Name), zap.String("block", string(kind)))

		v, err := EvalContext(ctx, block, env)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}

func evalRoot(ctx context.Context, n *ast.Root, env *Environment) (value.Value, error) {
	if n.Config != nil {
		if _, err := EvalContext(ctx, n.Config, env); err != nil {
			return nil, err
		}
	}

	if n.Data != nil {
		if _, err := EvalContext(ctx, n.Data, env); err != nil {
			return nil, err
		}
	}

	if n.Strategy == nil {
		return value.List{}, nil
	}

	return EvalContext(ctx, n.Strategy, env)
}
