package executor

import (
	"fmt"

	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/value"
)

// RuntimeError reports a failure evaluating an expression against a
// concrete row, distinct from the static checks the semantic analyzer
// already performed (a join predicate comparing incompatible variants,
// for instance, can only be caught once rows exist).
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Message }

func runtimeErrf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// evalExpr interprets e against row. The expression tree has no
// arithmetic operators; comparisons are handled by evalBool, not here,
// since they yield a boolean, not a Value.
func evalExpr(row Row, e parser.Expr) (value.Value, error) {
	switch x := e.(type) {
	case *parser.ColumnExpr:
		v, ok := row.Get(x.Qualifier, x.Name)
		if !ok {
			return value.Value{}, runtimeErrf("column %q not found in row", x.Name)
		}
		return v, nil
	case *parser.LiteralExpr:
		return x.Value, nil
	case *parser.AggExpr:
		v, ok := row.GetAgg(x)
		if !ok {
			return value.Value{}, runtimeErrf("aggregate %s was not computed for this row", x.Kind)
		}
		return v, nil
	case *parser.BinOpExpr:
		return value.Value{}, runtimeErrf("comparison operator %s does not produce a value", x.Op)
	default:
		return value.Value{}, runtimeErrf("unsupported expression type %T", e)
	}
}

// evalBool interprets e as a predicate. A NULL operand on either side of
// a comparison makes the whole comparison falsy, per §4.10.
func evalBool(row Row, e parser.Expr) (bool, error) {
	bin, ok := e.(*parser.BinOpExpr)
	if !ok {
		return false, runtimeErrf("expected a boolean expression, got %T", e)
	}
	if bin.Op == parser.OpAnd {
		l, err := evalBool(row, bin.Left)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return evalBool(row, bin.Right)
	}

	lv, err := evalExpr(row, bin.Left)
	if err != nil {
		return false, err
	}
	rv, err := evalExpr(row, bin.Right)
	if err != nil {
		return false, err
	}
	if lv.IsNull() || rv.IsNull() {
		return false, nil
	}
	cmp, err := value.Compare(lv, rv)
	if err != nil {
		return false, err
	}
	switch bin.Op {
	case parser.OpEq:
		return cmp == 0, nil
	case parser.OpNeq:
		return cmp != 0, nil
	case parser.OpLt:
		return cmp < 0, nil
	case parser.OpGt:
		return cmp > 0, nil
	case parser.OpLe:
		return cmp <= 0, nil
	case parser.OpGe:
		return cmp >= 0, nil
	default:
		return false, runtimeErrf("unsupported comparison operator %s", bin.Op)
	}
}

// exprLabel names an output column when no AS alias is given.
func exprLabel(e parser.Expr) string {
	switch x := e.(type) {
	case *parser.ColumnExpr:
		if x.Qualifier != "" {
			return x.Qualifier + "." + x.Name
		}
		return x.Name
	case *parser.AggExpr:
		arg := "*"
		if !x.Star {
			arg = exprLabel(x.Arg)
		}
		return fmt.Sprintf("%s(%s)", x.Kind, arg)
	case *parser.LiteralExpr:
		return x.Value.String()
	default:
		return "?"
	}
}
