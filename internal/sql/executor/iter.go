package executor

import (
	"sort"

	"github.com/tuannm99/relic/internal/catalog"
	"github.com/tuannm99/relic/internal/heap"
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/sql/planner"
	"github.com/tuannm99/relic/internal/storage"
	"github.com/tuannm99/relic/internal/value"
)

// iterator is the pull-based interface every plan node compiles to:
// Open acquires resources, Next returns one row (ok=false at end of
// stream), Close releases resources on every exit path including errors.
type iterator interface {
	Open() error
	Next() (Row, bool, error)
	Close() error
}

// buildIterator compiles a logical plan into an iterator tree. ex.Catalog
// resolves table names to their catalog schema, needed to label scanned
// rows with column names.
func (ex *Executor) buildIterator(p planner.Plan) (iterator, error) {
	switch n := p.(type) {
	case *planner.SeqScan:
		schema, err := ex.Catalog.Table(n.Table)
		if err != nil {
			return nil, err
		}
		table, err := ex.Tables.OpenTable(n.Table)
		if err != nil {
			return nil, err
		}
		return &seqScanIter{table: table, schema: schema, alias: n.Alias, predicate: n.Predicate}, nil

	case *planner.Filter:
		child, err := ex.buildIterator(n.Child)
		if err != nil {
			return nil, err
		}
		return &filterIter{child: child, predicate: n.Predicate}, nil

	case *planner.NestedLoopJoin:
		left, err := ex.buildIterator(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := ex.buildIterator(n.Right)
		if err != nil {
			return nil, err
		}
		return &joinIter{left: left, rightPlan: n.Right, right: right, ex: ex, predicate: n.Predicate}, nil

	case *planner.Aggregate:
		child, err := ex.buildIterator(n.Child)
		if err != nil {
			return nil, err
		}
		return &aggregateIter{child: child, groupKey: n.GroupKey, aggregates: n.Aggregates}, nil

	case *planner.Sort:
		child, err := ex.buildIterator(n.Child)
		if err != nil {
			return nil, err
		}
		return &sortIter{child: child, key: n.Key}, nil

	case *planner.Project:
		child, err := ex.buildIterator(n.Child)
		if err != nil {
			return nil, err
		}
		return &projectIter{child: child, items: n.Items}, nil

	default:
		return nil, runtimeErrf("plan node %T cannot be iterated", p)
	}
}

// ---- SeqScan ----

// seqScanIter walks a table's pages in order, holding at most one page
// pinned at a time, applying its absorbed predicate as it goes.
type seqScanIter struct {
	table     *heap.Table
	schema    *catalog.TableSchema
	alias     string
	predicate parser.Expr

	pageID uint32
	slot   int
	page   *storage.Page
	pinned bool
}

func (s *seqScanIter) columnNames() []string {
	names := make([]string, len(s.schema.Columns))
	for i, c := range s.schema.Columns {
		names[i] = c.Name
	}
	return names
}

func (s *seqScanIter) Open() error {
	s.pageID, s.slot, s.pinned = 0, 0, false
	return nil
}

func (s *seqScanIter) Next() (Row, bool, error) {
	names := s.columnNames()
	for {
		if !s.pinned {
			if s.pageID >= s.table.PageCount {
				return Row{}, false, nil
			}
			p, err := s.table.BP.GetPage(s.pageID)
			if err != nil {
				return Row{}, false, err
			}
			s.page = p
			s.pinned = true
			s.slot = 0
		}

		for s.slot < s.page.NumSlots() {
			cur := s.slot
			s.slot++
			if !s.page.IsLiveSlot(cur) {
				continue
			}
			data, err := s.page.ReadTuple(cur)
			if err != nil {
				return Row{}, false, err
			}
			vals, err := storage.DecodeRow(data)
			if err != nil {
				return Row{}, false, err
			}
			row := rowFromValues(s.alias, names, vals)
			row.TID = heap.TID{PageID: s.pageID, Slot: uint16(cur)}
			row.HasTID = true

			if s.predicate != nil {
				ok, err := evalBool(row, s.predicate)
				if err != nil {
					return Row{}, false, err
				}
				if !ok {
					continue
				}
			}
			return row, true, nil
		}

		_ = s.table.BP.Unpin(s.pageID, false)
		s.pinned = false
		s.pageID++
	}
}

func (s *seqScanIter) Close() error {
	if s.pinned {
		_ = s.table.BP.Unpin(s.pageID, false)
		s.pinned = false
	}
	return nil
}

// ---- Filter ----

type filterIter struct {
	child     iterator
	predicate parser.Expr
}

func (f *filterIter) Open() error { return f.child.Open() }

func (f *filterIter) Next() (Row, bool, error) {
	for {
		row, ok, err := f.child.Next()
		if err != nil || !ok {
			return Row{}, ok, err
		}
		match, err := evalBool(row, f.predicate)
		if err != nil {
			return Row{}, false, err
		}
		if match {
			return row, true, nil
		}
	}
}

func (f *filterIter) Close() error { return f.child.Close() }

// ---- NestedLoopJoin ----

// joinIter materializes the right input once per left row by reopening
// it (cheap here: right is always a small SeqScan/Filter subtree, not an
// arbitrary plan), matching the "materializes the right input per left
// row" rule of §4.10.
type joinIter struct {
	left      iterator
	right     iterator
	rightPlan planner.Plan
	ex        *Executor
	predicate parser.Expr

	leftRow Row
	haveLeft bool
}

func (j *joinIter) Open() error { return j.left.Open() }

func (j *joinIter) Next() (Row, bool, error) {
	for {
		if !j.haveLeft {
			row, ok, err := j.left.Next()
			if err != nil || !ok {
				return Row{}, ok, err
			}
			j.leftRow = row
			j.haveLeft = true
			if err := j.right.Close(); err != nil {
				return Row{}, false, err
			}
			fresh, err := j.ex.buildIterator(j.rightPlan)
			if err != nil {
				return Row{}, false, err
			}
			j.right = fresh
			if err := j.right.Open(); err != nil {
				return Row{}, false, err
			}
		}

		rightRow, ok, err := j.right.Next()
		if err != nil {
			return Row{}, false, err
		}
		if !ok {
			j.haveLeft = false
			continue
		}
		joined := concat(j.leftRow, rightRow)
		match, err := evalBool(joined, j.predicate)
		if err != nil {
			return Row{}, false, err
		}
		if match {
			return joined, true, nil
		}
	}
}

func (j *joinIter) Close() error {
	errL := j.left.Close()
	errR := j.right.Close()
	if errL != nil {
		return errL
	}
	return errR
}

// ---- Aggregate ----

type aggregateIter struct {
	child      iterator
	groupKey   string
	aggregates []*parser.AggExpr

	rows     []Row
	computed bool
}

func (a *aggregateIter) Open() error { return a.child.Open() }

func (a *aggregateIter) Next() (Row, bool, error) {
	if !a.computed {
		if err := a.compute(); err != nil {
			return Row{}, false, err
		}
		a.computed = true
	}
	return a.pop()
}

func (a *aggregateIter) compute() error {
	var groupOrder []string
	groups := map[string][]Row{}
	groupValue := map[string]value.Value{}

	for {
		row, ok, err := a.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key := ""
		var kv value.Value
		if a.groupKey != "" {
			v, found := row.Get("", a.groupKey)
			if !found {
				return runtimeErrf("GROUP BY column %q not found", a.groupKey)
			}
			kv = v
			key = v.String()
		}
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
			groupValue[key] = kv
		}
		groups[key] = append(groups[key], row)
	}

	if a.groupKey == "" && len(groupOrder) == 0 {
		groupOrder = append(groupOrder, "")
		groups[""] = nil
	}

	out := make([]Row, 0, len(groupOrder))
	for _, key := range groupOrder {
		members := groups[key]
		fields := []Field{}
		if a.groupKey != "" {
			fields = append(fields, Field{Name: a.groupKey, Value: groupValue[key]})
		}
		for _, agg := range a.aggregates {
			v, err := computeAggregate(agg, members)
			if err != nil {
				return err
			}
			fields = append(fields, Field{AggRef: agg, Value: v})
		}
		out = append(out, Row{Fields: fields})
	}

	a.rows = out
	return nil
}

// pop is a small trick to let Next's first call both compute and return
// results: after the materializing pass above we re-enter through a
// plain slice-draining path on every subsequent call.
func (a *aggregateIter) pop() (Row, bool, error) {
	if len(a.rows) == 0 {
		return Row{}, false, nil
	}
	row := a.rows[0]
	a.rows = a.rows[1:]
	return row, true, nil
}

func computeAggregate(agg *parser.AggExpr, rows []Row) (value.Value, error) {
	switch agg.Kind {
	case parser.AggCount:
		if agg.Star {
			return value.NewInt(int64(len(rows))), nil
		}
		col := agg.Arg.(*parser.ColumnExpr)
		var n int64
		for _, r := range rows {
			v, ok := r.Get(col.Qualifier, col.Name)
			if ok && !v.IsNull() {
				n++
			}
		}
		return value.NewInt(n), nil
	case parser.AggSum, parser.AggAvg:
		col := agg.Arg.(*parser.ColumnExpr)
		sum := value.NewInt(0)
		var n int64
		for _, r := range rows {
			v, ok := r.Get(col.Qualifier, col.Name)
			if !ok || v.IsNull() {
				continue
			}
			var err error
			sum, err = value.Add(sum, v)
			if err != nil {
				return value.Value{}, err
			}
			n++
		}
		if n == 0 {
			if agg.Kind == parser.AggSum {
				return value.Null, nil
			}
			return value.Null, nil
		}
		if agg.Kind == parser.AggSum {
			return sum, nil
		}
		return value.Div(sum, n)
	default:
		return value.Value{}, runtimeErrf("unsupported aggregate %s", agg.Kind)
	}
}

func (a *aggregateIter) Close() error { return a.child.Close() }

// ---- Sort ----

type sortIter struct {
	child iterator
	key   planner.SortKey

	rows []Row
	pos  int
	done bool
}

func (s *sortIter) Open() error { return s.child.Open() }

func (s *sortIter) Next() (Row, bool, error) {
	if !s.done {
		var rows []Row
		for {
			row, ok, err := s.child.Next()
			if err != nil {
				return Row{}, false, err
			}
			if !ok {
				break
			}
			rows = append(rows, row)
		}

		sort.SliceStable(rows, func(i, j int) bool {
			vi, oki := rows[i].Get("", s.key.Column)
			vj, okj := rows[j].Get("", s.key.Column)
			if !oki || vi.IsNull() {
				return false // NULLs (or missing) sort last regardless of direction
			}
			if !okj || vj.IsNull() {
				return true
			}
			cmp, err := value.Compare(vi, vj)
			if err != nil {
				return false
			}
			if s.key.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
		s.rows = rows
		s.done = true
	}

	if s.pos >= len(s.rows) {
		return Row{}, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *sortIter) Close() error { return s.child.Close() }

// ---- Project ----

type projectIter struct {
	child iterator
	items []parser.SelectItem
}

func (p *projectIter) Open() error { return p.child.Open() }

func (p *projectIter) Next() (Row, bool, error) {
	row, ok, err := p.child.Next()
	if err != nil || !ok {
		return Row{}, ok, err
	}
	return projectRow(row, p.items)
}

func projectRow(row Row, items []parser.SelectItem) (Row, bool, error) {
	var fields []Field
	for _, item := range items {
		if col, ok := item.Expr.(*parser.ColumnExpr); ok && col.Name == "*" {
			fields = append(fields, row.Fields...)
			continue
		}
		v, err := evalExpr(row, item.Expr)
		if err != nil {
			return Row{}, false, err
		}
		name := item.Alias
		if name == "" {
			name = exprLabel(item.Expr)
		}
		fields = append(fields, Field{Name: name, Value: v})
	}
	return Row{Fields: fields}, true, nil
}

func (p *projectIter) Close() error { return p.child.Close() }
