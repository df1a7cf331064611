package executor

import (
	"fmt"

	"github.com/tuannm99/relic/internal/heap"
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/value"
)

// Field is one named value within a Row. AggRef is set instead of
// Alias/Name when the field holds a computed aggregate result; Project
// resolves an *parser.AggExpr back to its value by pointer identity,
// since the same AST node flows from the SELECT list into the
// Aggregate plan node unchanged.
type Field struct {
	Alias  string
	Name   string
	Value  value.Value
	AggRef *parser.AggExpr
}

// Row is one tuple flowing through the executor pipeline. TID is set
// only for rows that still correspond to exactly one physical storage
// row (a bare SeqScan, not yet joined or aggregated).
type Row struct {
	Fields []Field
	TID    heap.TID
	HasTID bool
}

// Get resolves a (possibly qualified) column reference. An empty
// qualifier matches any alias, so callers must have already rejected
// ambiguous references (the semantic analyzer's job); Get itself just
// returns the first match.
func (r Row) Get(qualifier, name string) (value.Value, bool) {
	for _, f := range r.Fields {
		if f.Name != name {
			continue
		}
		if qualifier != "" && f.Alias != qualifier {
			continue
		}
		return f.Value, true
	}
	return value.Value{}, false
}

// GetAgg resolves a computed aggregate field by pointer identity with
// expr.
func (r Row) GetAgg(expr *parser.AggExpr) (value.Value, bool) {
	for _, f := range r.Fields {
		if f.AggRef == expr {
			return f.Value, true
		}
	}
	return value.Value{}, false
}

// concat builds a joined row: fields from left then right, under their
// own aliases, with TID cleared since a joined row no longer identifies
// a single physical row.
func concat(left, right Row) Row {
	out := Row{Fields: make([]Field, 0, len(left.Fields)+len(right.Fields))}
	out.Fields = append(out.Fields, left.Fields...)
	out.Fields = append(out.Fields, right.Fields...)
	return out
}

func rowFromValues(alias string, columns []string, vals []value.Value) Row {
	fields := make([]Field, len(vals))
	for i, v := range vals {
		name := ""
		if i < len(columns) {
			name = columns[i]
		}
		fields[i] = Field{Alias: alias, Name: name, Value: v}
	}
	return Row{Fields: fields}
}

func (r Row) String() string {
	return fmt.Sprintf("%v", r.Fields)
}
