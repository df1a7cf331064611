package planner

import (
	"fmt"

	"github.com/tuannm99/relic/internal/sql/parser"
)

// Build turns one validated Statement into a Plan, applying predicate
// push-down to any SELECT.
func Build(stmt parser.Statement) (Plan, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return nil, fmt.Errorf("planner: CREATE TABLE is executed directly against the catalog, not planned")
	case *parser.InsertStmt:
		return &Insert{Table: s.Table, Columns: s.Columns, Rows: s.Rows}, nil
	case *parser.SelectStmt:
		return buildSelect(s)
	case *parser.UpdateStmt:
		return buildUpdate(s)
	case *parser.DeleteStmt:
		return &Delete{Table: s.Table, Predicate: s.Where}, nil
	case *parser.ExplainStmt:
		return Build(s.Inner)
	default:
		return nil, fmt.Errorf("planner: unsupported statement type %T", stmt)
	}
}

func buildUpdate(s *parser.UpdateStmt) (Plan, error) {
	set := make([]Assignment, len(s.Set))
	for i, a := range s.Set {
		set[i] = Assignment{Column: a.Column, Value: a.Value}
	}
	return &Update{Table: s.Table, Set: set, Predicate: s.Where}, nil
}

func buildSelect(s *parser.SelectStmt) (Plan, error) {
	var plan Plan = &SeqScan{Table: s.From.Table, Alias: s.From.Alias}

	if s.Join != nil {
		right := Plan(&SeqScan{Table: s.Join.Right.Table, Alias: s.Join.Right.Alias})
		plan = &NestedLoopJoin{Left: plan, Right: right, Predicate: s.Join.On}
	}

	if s.Where != nil {
		plan = &Filter{Child: plan, Predicate: s.Where}
	}

	plan = pushdown(plan)

	hasAgg := s.GroupBy != ""
	var aggs []*parser.AggExpr
	for _, item := range s.Items {
		if agg, ok := item.Expr.(*parser.AggExpr); ok {
			hasAgg = true
			aggs = append(aggs, agg)
		}
	}
	if hasAgg {
		plan = &Aggregate{Child: plan, GroupKey: s.GroupBy, Aggregates: aggs}
	}

	if s.OrderBy != nil {
		plan = &Sort{Child: plan, Key: SortKey{Column: s.OrderBy.Column, Desc: s.OrderBy.Desc}}
	}

	plan = &Project{Child: plan, Items: s.Items}
	return plan, nil
}

// pushdown absorbs conjuncts of a top-level Filter's predicate into the
// SeqScan of the single table alias they reference, leaving the rest on
// the Filter (or removing it entirely if every conjunct was absorbed).
// Conjunct order is preserved on both sides. Only the Filter-directly-
// over-a-scan-or-join shape produced by buildSelect is handled; this
// mirrors the push-down rule in §4.4, not a general-purpose rewrite pass.
func pushdown(p Plan) Plan {
	f, ok := p.(*Filter)
	if !ok {
		return p
	}

	conjuncts := parser.SplitConjuncts(f.Predicate)
	var residual []parser.Expr

	switch child := f.Child.(type) {
	case *SeqScan:
		alias := child.Alias
		var pushed []parser.Expr
		for _, c := range conjuncts {
			if referencedAliases(c).onlyContains(alias) {
				pushed = append(pushed, c)
			} else {
				residual = append(residual, c)
			}
		}
		child.Predicate = andAll(pushed)
		return wrapResidual(child, residual)

	case *NestedLoopJoin:
		leftAlias := scanAlias(child.Left)
		rightAlias := scanAlias(child.Right)
		var leftPushed, rightPushed []parser.Expr
		for _, c := range conjuncts {
			refs := referencedAliases(c)
			switch {
			case leftAlias != "" && refs.onlyContains(leftAlias):
				leftPushed = append(leftPushed, c)
			case rightAlias != "" && refs.onlyContains(rightAlias):
				rightPushed = append(rightPushed, c)
			default:
				residual = append(residual, c)
			}
		}
		if ls, ok := child.Left.(*SeqScan); ok {
			ls.Predicate = andAll(leftPushed)
		} else if len(leftPushed) > 0 {
			residual = append(leftPushed, residual...)
		}
		if rs, ok := child.Right.(*SeqScan); ok {
			rs.Predicate = andAll(rightPushed)
		} else if len(rightPushed) > 0 {
			residual = append(rightPushed, residual...)
		}
		return wrapResidual(child, residual)

	default:
		return f
	}
}

func scanAlias(p Plan) string {
	if s, ok := p.(*SeqScan); ok {
		return s.Alias
	}
	return ""
}

func wrapResidual(child Plan, residual []parser.Expr) Plan {
	pred := andAll(residual)
	if pred == nil {
		return child
	}
	return &Filter{Child: child, Predicate: pred}
}

// andAll re-forms a left-leaning AND tree from conjuncts in order, or
// returns nil for an empty slice.
func andAll(conjuncts []parser.Expr) parser.Expr {
	if len(conjuncts) == 0 {
		return nil
	}
	result := conjuncts[0]
	for _, c := range conjuncts[1:] {
		result = &parser.BinOpExpr{Op: parser.OpAnd, Left: result, Right: c}
	}
	return result
}

type aliasSet map[string]bool

func (s aliasSet) onlyContains(alias string) bool {
	if len(s) == 0 {
		return false
	}
	for a := range s {
		if a != alias {
			return false
		}
	}
	return true
}

// referencedAliases collects every table alias used by a qualified column
// reference within e. A bare (unqualified) column contributes nothing,
// so a conjunct built entirely of bare columns never pushes down —
// conservative, matching the push-down rule's singleton-alias test.
func referencedAliases(e parser.Expr) aliasSet {
	s := aliasSet{}
	collectAliases(e, s)
	return s
}

func collectAliases(e parser.Expr, s aliasSet) {
	switch x := e.(type) {
	case *parser.ColumnExpr:
		if x.Qualifier != "" {
			s[x.Qualifier] = true
		}
	case *parser.BinOpExpr:
		collectAliases(x.Left, s)
		collectAliases(x.Right, s)
	case *parser.AggExpr:
		if x.Arg != nil {
			collectAliases(x.Arg, s)
		}
	}
}
