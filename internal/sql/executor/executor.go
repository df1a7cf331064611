// Package executor interprets logical plans (and the one statement kind
// that bypasses planning, CREATE TABLE) against the catalog and the
// table heaps, evaluating expressions and aggregates along the way.
package executor

import (
	"github.com/tuannm99/relic/internal/catalog"
	"github.com/tuannm99/relic/internal/heap"
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/sql/planner"
	"github.com/tuannm99/relic/internal/value"
)

// TableProvider opens (creating the in-memory handle for, if not
// already open) the heap.Table backing a catalog table name. The
// executor never owns table files or buffer pools directly; it asks the
// engine for a handle each time one is needed.
type TableProvider interface {
	OpenTable(name string) (*heap.Table, error)
}

// ConstraintViolation is returned for a primary-key, VARCHAR(n), or
// foreign-key failure.
type ConstraintViolation struct {
	Message string
}

func (e *ConstraintViolation) Error() string { return "constraint violation: " + e.Message }

// Result is what executing one statement produces: either a row set
// (SELECT) or an affected-row count (INSERT/UPDATE/DELETE/CREATE TABLE).
type Result struct {
	Columns  []string
	Rows     [][]value.Value
	Affected int64
}

// Executor runs statements against Catalog and Tables.
type Executor struct {
	Catalog *catalog.Catalog
	Tables  TableProvider
}

func New(c *catalog.Catalog, tables TableProvider) *Executor {
	return &Executor{Catalog: c, Tables: tables}
}

// Execute runs one already-parsed statement. EXPLAIN is unwrapped and
// its inner statement executed normally; the shell's own EXPLAIN
// meta-command is what actually skips execution to dump the plan.
func (ex *Executor) Execute(stmt parser.Statement) (*Result, error) {
	if explain, ok := stmt.(*parser.ExplainStmt); ok {
		stmt = explain.Inner
	}
	if create, ok := stmt.(*parser.CreateTableStmt); ok {
		return ex.execCreateTable(create)
	}

	plan, err := planner.Build(stmt)
	if err != nil {
		return nil, err
	}
	return ex.ExecutePlan(plan)
}

// ExecutePlan runs an already-built plan; Execute calls it once a
// statement has been planned.
func (ex *Executor) ExecutePlan(plan planner.Plan) (*Result, error) {
	switch p := plan.(type) {
	case *planner.Insert:
		return ex.execInsert(p)
	case *planner.Update:
		return ex.execUpdate(p)
	case *planner.Delete:
		return ex.execDelete(p)
	default:
		return ex.execSelect(plan)
	}
}

func (ex *Executor) execCreateTable(s *parser.CreateTableStmt) (*Result, error) {
	cols := make([]catalog.Column, len(s.Columns))
	for i, c := range s.Columns {
		t, err := catalog.ParseColumnType(c.TypeName)
		if err != nil {
			return nil, err
		}
		cols[i] = catalog.Column{Name: c.Name, Type: t, MaxLength: c.MaxLength, PrimaryKey: c.PrimaryKey}
	}
	for _, tc := range s.Constraints {
		if tc.PrimaryKeyColumn != "" {
			for i := range cols {
				if cols[i].Name == tc.PrimaryKeyColumn {
					cols[i].PrimaryKey = true
				}
			}
		}
		if tc.ForeignKeyColumn != "" {
			for i := range cols {
				if cols[i].Name == tc.ForeignKeyColumn {
					cols[i].ForeignKey = &catalog.ForeignKey{RefTable: tc.RefTable, RefColumn: tc.RefColumn}
				}
			}
		}
	}
	if err := ex.Catalog.CreateTable(s.Table, cols); err != nil {
		return nil, err
	}
	return &Result{Affected: 0}, nil
}

// ---- SELECT ----

func (ex *Executor) execSelect(plan planner.Plan) (*Result, error) {
	it, err := ex.buildIterator(plan)
	if err != nil {
		return nil, err
	}
	if err := it.Open(); err != nil {
		_ = it.Close()
		return nil, err
	}

	var rows [][]value.Value
	var columns []string
	for {
		row, ok, err := it.Next()
		if err != nil {
			_ = it.Close()
			return nil, err
		}
		if !ok {
			break
		}
		if columns == nil {
			columns = make([]string, len(row.Fields))
			for i, f := range row.Fields {
				columns[i] = f.Name
			}
		}
		vals := make([]value.Value, len(row.Fields))
		for i, f := range row.Fields {
			vals[i] = f.Value
		}
		rows = append(rows, vals)
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	return &Result{Columns: columns, Rows: rows, Affected: int64(len(rows))}, nil
}

// ---- INSERT ----

func (ex *Executor) execInsert(p *planner.Insert) (*Result, error) {
	schema, err := ex.Catalog.Table(p.Table)
	if err != nil {
		return nil, err
	}
	table, err := ex.Tables.OpenTable(p.Table)
	if err != nil {
		return nil, err
	}

	var affected int64
	var firstErr error
	for _, rowExprs := range p.Rows {
		vals := make([]value.Value, len(schema.Columns))
		for i := range vals {
			vals[i] = value.Null
		}
		rowErr := error(nil)
		if len(p.Columns) > 0 {
			for i, name := range p.Columns {
				idx := schema.ColumnIndex(name)
				if idx < 0 {
					rowErr = runtimeErrf("column %q does not exist on table %s", name, p.Table)
					break
				}
				v, err := evalExpr(Row{}, rowExprs[i])
				if err != nil {
					rowErr = err
					break
				}
				vals[idx] = v
			}
		} else {
			for i, expr := range rowExprs {
				v, err := evalExpr(Row{}, expr)
				if err != nil {
					rowErr = err
					break
				}
				vals[i] = v
			}
		}
		if rowErr == nil {
			rowErr = ex.checkRowConstraints(schema, vals, nil)
		}
		if rowErr == nil {
			_, rowErr = table.Insert(vals)
		}
		if rowErr != nil {
			// Each row is processed independently; a failed row does not
			// undo rows already inserted, and later rows are still tried.
			if firstErr == nil {
				firstErr = rowErr
			}
			continue
		}
		affected++
	}

	if affected > 0 {
		_ = ex.Catalog.SetPageCount(p.Table, table.PageCount)
		_ = ex.Catalog.SetRowCount(p.Table, schema.RowCount+affected)
	}
	return &Result{Affected: affected}, firstErr
}

// ---- UPDATE ----

func (ex *Executor) execUpdate(p *planner.Update) (*Result, error) {
	schema, err := ex.Catalog.Table(p.Table)
	if err != nil {
		return nil, err
	}
	table, err := ex.Tables.OpenTable(p.Table)
	if err != nil {
		return nil, err
	}

	matches, err := ex.scanMatching(table, schema, p.Predicate)
	if err != nil {
		return nil, err
	}

	var affected int64
	for _, m := range matches {
		newVals := append([]value.Value(nil), m.vals...)
		for _, asn := range p.Set {
			idx := schema.ColumnIndex(asn.Column)
			if idx < 0 {
				return &Result{Affected: affected}, runtimeErrf("column %q does not exist on table %s", asn.Column, p.Table)
			}
			v, err := evalExpr(Row{}, asn.Value)
			if err != nil {
				return &Result{Affected: affected}, err
			}
			newVals[idx] = v
		}
		if err := ex.checkRowConstraints(schema, newVals, &m.tid); err != nil {
			return &Result{Affected: affected}, err
		}
		if _, err := table.Update(m.tid, newVals); err != nil {
			return &Result{Affected: affected}, err
		}
		affected++
	}
	_ = ex.Catalog.SetPageCount(p.Table, table.PageCount)
	return &Result{Affected: affected}, nil
}

// ---- DELETE ----

func (ex *Executor) execDelete(p *planner.Delete) (*Result, error) {
	schema, err := ex.Catalog.Table(p.Table)
	if err != nil {
		return nil, err
	}
	table, err := ex.Tables.OpenTable(p.Table)
	if err != nil {
		return nil, err
	}
	matches, err := ex.scanMatching(table, schema, p.Predicate)
	if err != nil {
		return nil, err
	}
	var affected int64
	for _, m := range matches {
		if err := table.Delete(m.tid); err != nil {
			return &Result{Affected: affected}, err
		}
		affected++
	}
	if affected > 0 {
		newCount := schema.RowCount - affected
		if newCount < 0 {
			newCount = 0
		}
		_ = ex.Catalog.SetRowCount(p.Table, newCount)
	}
	return &Result{Affected: affected}, nil
}

// ---- shared scan-with-predicate helper for UPDATE/DELETE ----

type matchedRow struct {
	tid  heap.TID
	vals []value.Value
}

// scanMatching collects every row satisfying predicate (nil means every
// row), materializing them up front so the mutation loop that follows
// never holds a page pinned while calling back into Table.Update/Delete.
func (ex *Executor) scanMatching(table *heap.Table, schema *catalog.TableSchema, predicate parser.Expr) ([]matchedRow, error) {
	names := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.Name
	}

	var out []matchedRow
	err := table.Scan(func(id heap.TID, vals []value.Value) error {
		if predicate != nil {
			row := rowFromValues("", names, vals)
			ok, err := evalBool(row, predicate)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		out = append(out, matchedRow{tid: id, vals: append([]value.Value(nil), vals...)})
		return nil
	})
	return out, err
}

// ---- constraint enforcement ----

// checkRowConstraints validates VARCHAR(n) length, primary-key
// uniqueness and foreign-key existence for vals before it is written.
// excludeTID, when non-nil, is the row being updated in place, which
// must not be compared against itself for primary-key uniqueness.
func (ex *Executor) checkRowConstraints(schema *catalog.TableSchema, vals []value.Value, excludeTID *heap.TID) error {
	for i, col := range schema.Columns {
		if col.Type == catalog.TypeVarchar && col.MaxLength > 0 && vals[i].Kind == value.KindVarchar {
			if len(vals[i].Str) > col.MaxLength {
				return &ConstraintViolation{Message: "value for " + col.Name + " exceeds VARCHAR(" + itoa(col.MaxLength) + ")"}
			}
		}
	}

	if pkIdx := schema.PrimaryKeyIndex(); pkIdx >= 0 {
		table, err := ex.Tables.OpenTable(schema.Name)
		if err != nil {
			return err
		}
		pkVal := vals[pkIdx]
		var conflict bool
		err = table.Scan(func(id heap.TID, existing []value.Value) error {
			if excludeTID != nil && id == *excludeTID {
				return nil
			}
			if value.Equal(existing[pkIdx], pkVal) {
				conflict = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if conflict {
			return &ConstraintViolation{Message: "duplicate primary key on " + schema.Columns[pkIdx].Name}
		}
	}

	for i, col := range schema.Columns {
		if col.ForeignKey == nil || vals[i].IsNull() {
			continue
		}
		refTable, err := ex.Tables.OpenTable(col.ForeignKey.RefTable)
		if err != nil {
			return err
		}
		refSchema, err := ex.Catalog.Table(col.ForeignKey.RefTable)
		if err != nil {
			return err
		}
		refIdx := refSchema.ColumnIndex(col.ForeignKey.RefColumn)
		if refIdx < 0 {
			return runtimeErrf("foreign key references unknown column %s.%s", col.ForeignKey.RefTable, col.ForeignKey.RefColumn)
		}
		var found bool
		err = refTable.Scan(func(_ heap.TID, row []value.Value) error {
			if value.Equal(row[refIdx], vals[i]) {
				found = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !found {
			return &ConstraintViolation{Message: "foreign key " + col.Name + " references a nonexistent row"}
		}
	}
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
