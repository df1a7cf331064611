// Package planner converts a validated AST into a logical plan tree and
// applies predicate push-down over it.
package planner

import "github.com/tuannm99/relic/internal/sql/parser"

// Plan is the root interface for every logical plan node.
type Plan interface{ planNode() }

// SeqScan reads every live row of table (known inside the plan by alias),
// optionally filtering with Predicate as rows are produced.
type SeqScan struct {
	Table     string
	Alias     string
	Predicate parser.Expr // nil if nothing was pushed down
}

func (*SeqScan) planNode() {}

// Filter re-evaluates Predicate against each row from Child, dropping
// rows for which it is false or NULL.
type Filter struct {
	Child     Plan
	Predicate parser.Expr
}

func (*Filter) planNode() {}

// NestedLoopJoin is the only join strategy: for every left row, scan all
// of right and emit paired rows matching Predicate.
type NestedLoopJoin struct {
	Left, Right Plan
	Predicate   parser.Expr
}

func (*NestedLoopJoin) planNode() {}

// Project evaluates Items against each input row to produce output rows.
type Project struct {
	Child Plan
	Items []parser.SelectItem
}

func (*Project) planNode() {}

// Aggregate groups rows by GroupKey (empty means one group over all
// input) and evaluates Aggregates once per group.
type Aggregate struct {
	Child      Plan
	GroupKey   string // "" if no GROUP BY
	Aggregates []*parser.AggExpr
}

func (*Aggregate) planNode() {}

// SortKey is one ORDER BY term.
type SortKey struct {
	Column string
	Desc   bool
}

// Sort orders Child's rows. Exactly one key is supported per the grammar.
type Sort struct {
	Child Plan
	Key   SortKey
}

func (*Sort) planNode() {}

type Insert struct {
	Table   string
	Columns []string
	Rows    [][]parser.Expr
}

func (*Insert) planNode() {}

type Assignment struct {
	Column string
	Value  parser.Expr
}

type Update struct {
	Table     string
	Set       []Assignment
	Predicate parser.Expr
}

func (*Update) planNode() {}

type Delete struct {
	Table     string
	Predicate parser.Expr
}

func (*Delete) planNode() {}
