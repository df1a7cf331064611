package main

import (
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/sql/planner"
)

// planNode is the YAML-friendly shape describePlan renders a
// planner.Plan tree into, one node at a time.
type planNode struct {
	Op        string      `yaml:"op"`
	Table     string      `yaml:"table,omitempty"`
	Alias     string      `yaml:"alias,omitempty"`
	Predicate string      `yaml:"predicate,omitempty"`
	GroupBy   string      `yaml:"group_by,omitempty"`
	OrderBy   string      `yaml:"order_by,omitempty"`
	Columns   []string    `yaml:"columns,omitempty"`
	Left      *planNode   `yaml:"left,omitempty"`
	Right     *planNode   `yaml:"right,omitempty"`
	Child     *planNode   `yaml:"child,omitempty"`
}

// describePlan walks p into a tree of planNode, the way the original
// optimizer's PlanNode.__repr__ methods described a plan one operator
// at a time.
func describePlan(p planner.Plan) *planNode {
	switch n := p.(type) {
	case *planner.SeqScan:
		return &planNode{Op: "SeqScan", Table: n.Table, Alias: n.Alias, Predicate: exprString(n.Predicate)}
	case *planner.Filter:
		return &planNode{Op: "Filter", Predicate: exprString(n.Predicate), Child: describePlan(n.Child)}
	case *planner.NestedLoopJoin:
		return &planNode{Op: "NestedLoopJoin", Predicate: exprString(n.Predicate), Left: describePlan(n.Left), Right: describePlan(n.Right)}
	case *planner.Project:
		cols := make([]string, len(n.Items))
		for i, it := range n.Items {
			cols[i] = exprString(it.Expr)
			if it.Alias != "" {
				cols[i] += " AS " + it.Alias
			}
		}
		return &planNode{Op: "Project", Columns: cols, Child: describePlan(n.Child)}
	case *planner.Aggregate:
		aggs := make([]string, len(n.Aggregates))
		for i, a := range n.Aggregates {
			aggs[i] = exprString(a)
		}
		return &planNode{Op: "Aggregate", GroupBy: n.GroupKey, Columns: aggs, Child: describePlan(n.Child)}
	case *planner.Sort:
		dir := "ASC"
		if n.Key.Desc {
			dir = "DESC"
		}
		return &planNode{Op: "Sort", OrderBy: n.Key.Column + " " + dir, Child: describePlan(n.Child)}
	case *planner.Insert:
		return &planNode{Op: "Insert", Table: n.Table, Columns: n.Columns}
	case *planner.Update:
		return &planNode{Op: "Update", Table: n.Table, Predicate: exprString(n.Predicate)}
	case *planner.Delete:
		return &planNode{Op: "Delete", Table: n.Table, Predicate: exprString(n.Predicate)}
	default:
		return &planNode{Op: "Unknown"}
	}
}

// exprString renders an expression tree back into roughly the SQL text
// it came from, good enough for a diagnostic EXPLAIN dump.
func exprString(e parser.Expr) string {
	if e == nil {
		return ""
	}
	switch x := e.(type) {
	case *parser.ColumnExpr:
		if x.Qualifier != "" {
			return x.Qualifier + "." + x.Name
		}
		return x.Name
	case *parser.LiteralExpr:
		return x.Value.String()
	case *parser.BinOpExpr:
		return exprString(x.Left) + " " + x.Op.String() + " " + exprString(x.Right)
	case *parser.AggExpr:
		if x.Star {
			return x.Kind.String() + "(*)"
		}
		return x.Kind.String() + "(" + exprString(x.Arg) + ")"
	default:
		return "?"
	}
}
