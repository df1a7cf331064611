// Package semantic validates a parsed statement against the catalog:
// table and column existence, alias resolution, arity and type
// compatibility. It never touches storage.
package semantic

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/tuannm99/relic/internal/catalog"
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/value"
)

// SemanticError is one validation failure. Location is a best-effort
// description of where in the statement the problem was found (a table
// name, column reference, or similar), since the AST does not carry
// source positions.
type SemanticError struct {
	Kind     string
	Message  string
	Location string
}

func (e *SemanticError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Location)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newErr(kind, location, format string, args ...any) error {
	return &SemanticError{Kind: kind, Message: fmt.Sprintf(format, args...), Location: location}
}

// Analyzer checks statements against a Catalog.
type Analyzer struct {
	Catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Analyzer {
	return &Analyzer{Catalog: c}
}

// Analyze dispatches to the per-statement-kind check and returns every
// error found, combined with multierr so callers can report them all at
// once instead of stopping at the first problem.
func (a *Analyzer) Analyze(stmt parser.Statement) error {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return a.checkCreateTable(s)
	case *parser.InsertStmt:
		return a.checkInsert(s)
	case *parser.SelectStmt:
		return a.checkSelect(s)
	case *parser.UpdateStmt:
		return a.checkUpdate(s)
	case *parser.DeleteStmt:
		return a.checkDelete(s)
	case *parser.ExplainStmt:
		return a.Analyze(s.Inner)
	default:
		return newErr("SemanticError", "", "unsupported statement type %T", stmt)
	}
}

// ---- CREATE TABLE ----

func (a *Analyzer) checkCreateTable(s *parser.CreateTableStmt) error {
	var errs error
	if a.Catalog.TableExists(s.Table) {
		errs = multierr.Append(errs, newErr("SemanticError", s.Table, "table already exists"))
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if seen[col.Name] {
			errs = multierr.Append(errs, newErr("SemanticError", col.Name, "column defined more than once"))
			continue
		}
		seen[col.Name] = true
		if _, err := catalog.ParseColumnType(col.TypeName); err != nil {
			errs = multierr.Append(errs, newErr("SemanticError", col.Name, "unsupported column type %q", col.TypeName))
		}
	}
	for _, c := range s.Constraints {
		if c.PrimaryKeyColumn != "" && !seen[c.PrimaryKeyColumn] {
			errs = multierr.Append(errs, newErr("SemanticError", c.PrimaryKeyColumn, "PRIMARY KEY column is not declared"))
		}
		if c.ForeignKeyColumn != "" && !seen[c.ForeignKeyColumn] {
			errs = multierr.Append(errs, newErr("SemanticError", c.ForeignKeyColumn, "FOREIGN KEY column is not declared"))
		}
	}
	return errs
}

// ---- INSERT ----

func (a *Analyzer) checkInsert(s *parser.InsertStmt) error {
	schema, err := a.Catalog.Table(s.Table)
	if err != nil {
		return newErr("SemanticError", s.Table, "table does not exist")
	}

	var errs error
	targetCols := schema.Columns
	if len(s.Columns) > 0 {
		targetCols = make([]catalog.Column, 0, len(s.Columns))
		for _, name := range s.Columns {
			idx := schema.ColumnIndex(name)
			if idx < 0 {
				errs = multierr.Append(errs, newErr("SemanticError", name, "column does not exist on table %s", s.Table))
				continue
			}
			targetCols = append(targetCols, schema.Columns[idx])
		}
	}

	for _, row := range s.Rows {
		if len(row) != len(targetCols) {
			errs = multierr.Append(errs, newErr("SemanticError", s.Table,
				"expected %d values, got %d", len(targetCols), len(row)))
			continue
		}
		for i, expr := range row {
			lit, ok := expr.(*parser.LiteralExpr)
			if !ok {
				errs = multierr.Append(errs, newErr("SemanticError", targetCols[i].Name, "INSERT values must be literals"))
				continue
			}
			if err := checkAssignable(targetCols[i], lit.Value); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return errs
}

func checkAssignable(col catalog.Column, v value.Value) error {
	if v.Kind == value.KindNull {
		return nil
	}
	switch col.Type {
	case catalog.TypeInt:
		if v.Kind != value.KindInt {
			return newErr("TypeError", col.Name, "expected INT, got %s", v.Kind)
		}
	case catalog.TypeFloat:
		if v.Kind != value.KindFloat && v.Kind != value.KindInt {
			return newErr("TypeError", col.Name, "expected FLOAT, got %s", v.Kind)
		}
	case catalog.TypeVarchar:
		if v.Kind != value.KindVarchar {
			return newErr("TypeError", col.Name, "expected VARCHAR, got %s", v.Kind)
		}
		if col.MaxLength > 0 && len(v.Str) > col.MaxLength {
			return newErr("ConstraintViolation", col.Name, "value exceeds VARCHAR(%d)", col.MaxLength)
		}
	}
	return nil
}

// ---- shared alias resolution ----

// aliasMap maps a table's alias (or bare name, when no alias given) to its
// underlying table name.
type aliasMap map[string]string

func (a *Analyzer) buildAliasMap(from parser.TableRef, join *parser.JoinClause) (aliasMap, error) {
	m := aliasMap{}
	var errs error
	add := func(ref parser.TableRef) {
		if !a.Catalog.TableExists(ref.Table) {
			errs = multierr.Append(errs, newErr("SemanticError", ref.Table, "table does not exist"))
			return
		}
		m[ref.Alias] = ref.Table
	}
	add(from)
	if join != nil {
		add(join.Right)
	}
	return m, errs
}

// resolveColumn checks that a column reference is unambiguous (if bare)
// or references a declared alias (if qualified).
func (a *Analyzer) resolveColumn(m aliasMap, col *parser.ColumnExpr) error {
	if col.Name == "*" {
		return nil
	}
	if col.Qualifier != "" {
		table, ok := m[col.Qualifier]
		if !ok {
			return newErr("SemanticError", col.Qualifier, "undefined table alias")
		}
		schema, err := a.Catalog.Table(table)
		if err != nil {
			return newErr("SemanticError", table, "table does not exist")
		}
		if schema.ColumnIndex(col.Name) < 0 {
			return newErr("SemanticError", col.Name, "column does not exist on table %s", table)
		}
		return nil
	}

	var hits int
	for _, table := range m {
		schema, err := a.Catalog.Table(table)
		if err != nil {
			continue
		}
		if schema.ColumnIndex(col.Name) >= 0 {
			hits++
		}
	}
	if hits == 0 {
		return newErr("SemanticError", col.Name, "column does not exist in any table in scope")
	}
	if hits > 1 {
		return newErr("SemanticError", col.Name, "column reference is ambiguous; qualify it with a table alias")
	}
	return nil
}

func (a *Analyzer) checkExpr(m aliasMap, e parser.Expr) error {
	switch x := e.(type) {
	case *parser.ColumnExpr:
		return a.resolveColumn(m, x)
	case *parser.LiteralExpr:
		return nil
	case *parser.BinOpExpr:
		var errs error
		errs = multierr.Append(errs, a.checkExpr(m, x.Left))
		errs = multierr.Append(errs, a.checkExpr(m, x.Right))
		if x.Op != parser.OpAnd {
			errs = multierr.Append(errs, checkComparable(x.Left, x.Right))
		}
		return errs
	case *parser.AggExpr:
		if x.Star {
			if x.Kind != parser.AggCount {
				return newErr("SemanticError", "*", "only COUNT(*) may use *")
			}
			return nil
		}
		return a.checkExpr(m, x.Arg)
	default:
		return newErr("SemanticError", "", "unsupported expression type %T", e)
	}
}

// checkComparable rejects predicates whose operand kinds can never be
// equal, when both sides are literals or both are unresolvable to a
// concrete kind at analysis time. Column-vs-column and column-vs-literal
// comparisons are accepted here; value compatibility is ultimately
// re-validated by value.Compare at execution time.
func checkComparable(left, right parser.Expr) error {
	lLit, lok := left.(*parser.LiteralExpr)
	rLit, rok := right.(*parser.LiteralExpr)
	if !lok || !rok {
		return nil
	}
	if lLit.Value.Kind == value.KindNull || rLit.Value.Kind == value.KindNull {
		return nil
	}
	if isNumeric(lLit.Value.Kind) && isNumeric(rLit.Value.Kind) {
		return nil
	}
	if lLit.Value.Kind != rLit.Value.Kind {
		return newErr("TypeError", "", "cannot compare %s with %s", lLit.Value.Kind, rLit.Value.Kind)
	}
	return nil
}

func isNumeric(k value.Kind) bool { return k == value.KindInt || k == value.KindFloat }

// ---- SELECT ----

func (a *Analyzer) checkSelect(s *parser.SelectStmt) error {
	m, errs := a.buildAliasMap(s.From, s.Join)
	if errs != nil {
		// Table resolution failed; further column checks would just cascade.
		return errs
	}

	hasAgg := false
	for _, item := range s.Items {
		if _, ok := item.Expr.(*parser.AggExpr); ok {
			hasAgg = true
		}
		errs = multierr.Append(errs, a.checkExpr(m, item.Expr))
	}

	if s.Join != nil {
		errs = multierr.Append(errs, a.checkExpr(m, s.Join.On))
	}
	if s.Where != nil {
		errs = multierr.Append(errs, a.checkExpr(m, s.Where))
	}

	if s.GroupBy != "" {
		hasAgg = true
		errs = multierr.Append(errs, a.resolveColumn(m, &parser.ColumnExpr{Name: s.GroupBy}))
		for _, item := range s.Items {
			col, ok := item.Expr.(*parser.ColumnExpr)
			if !ok {
				continue // aggregates are always fine alongside GROUP BY
			}
			if col.Name != "*" && col.Name != s.GroupBy {
				errs = multierr.Append(errs, newErr("SemanticError", col.Name,
					"must appear in GROUP BY or be used in an aggregate"))
			}
		}
	} else if hasAgg {
		// An aggregate with no GROUP BY collapses the whole result to one
		// row; a bare column has no well-defined value in that row.
		for _, item := range s.Items {
			col, ok := item.Expr.(*parser.ColumnExpr)
			if !ok {
				continue
			}
			if col.Name != "*" {
				errs = multierr.Append(errs, newErr("SemanticError", col.Name,
					"must be used in an aggregate when the query has no GROUP BY"))
			}
		}
	}

	if s.OrderBy != nil {
		errs = multierr.Append(errs, a.resolveColumn(m, &parser.ColumnExpr{Name: s.OrderBy.Column}))
	}
	return errs
}

// ---- UPDATE ----

func (a *Analyzer) checkUpdate(s *parser.UpdateStmt) error {
	schema, err := a.Catalog.Table(s.Table)
	if err != nil {
		return newErr("SemanticError", s.Table, "table does not exist")
	}
	var errs error
	m := aliasMap{s.Table: s.Table}
	for _, asn := range s.Set {
		idx := schema.ColumnIndex(asn.Column)
		if idx < 0 {
			errs = multierr.Append(errs, newErr("SemanticError", asn.Column, "column does not exist on table %s", s.Table))
			continue
		}
		lit, ok := asn.Value.(*parser.LiteralExpr)
		if !ok {
			errs = multierr.Append(errs, newErr("SemanticError", asn.Column, "SET value must be a literal"))
			continue
		}
		if err := checkAssignable(schema.Columns[idx], lit.Value); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if s.Where != nil {
		errs = multierr.Append(errs, a.checkExpr(m, s.Where))
	}
	return errs
}

// ---- DELETE ----

func (a *Analyzer) checkDelete(s *parser.DeleteStmt) error {
	if !a.Catalog.TableExists(s.Table) {
		return newErr("SemanticError", s.Table, "table does not exist")
	}
	if s.Where == nil {
		return nil
	}
	m := aliasMap{s.Table: s.Table}
	return a.checkExpr(m, s.Where)
}
