package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/relic/internal/sql/parser"
)

func parseOne(t *testing.T, sql string) parser.Statement {
	t.Helper()
	stmts, errs := parser.ParseAll(sql)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)
	return stmts[0]
}

func TestBuildInsert(t *testing.T) {
	stmt := parseOne(t, `INSERT INTO t (id, name) VALUES (1, 'a');`)
	p, err := Build(stmt)
	require.NoError(t, err)
	ins, ok := p.(*Insert)
	require.True(t, ok)
	require.Equal(t, "t", ins.Table)
	require.Equal(t, []string{"id", "name"}, ins.Columns)
	require.Len(t, ins.Rows, 1)
}

func TestBuildDelete(t *testing.T) {
	stmt := parseOne(t, `DELETE FROM t WHERE id = 1;`)
	p, err := Build(stmt)
	require.NoError(t, err)
	del, ok := p.(*Delete)
	require.True(t, ok)
	require.Equal(t, "t", del.Table)
	require.NotNil(t, del.Predicate)
}

func TestBuildUpdate(t *testing.T) {
	stmt := parseOne(t, `UPDATE t SET name = 'b' WHERE id = 1;`)
	p, err := Build(stmt)
	require.NoError(t, err)
	upd, ok := p.(*Update)
	require.True(t, ok)
	require.Len(t, upd.Set, 1)
	require.NotNil(t, upd.Predicate)
}

func TestBuildSelectSimpleShape(t *testing.T) {
	stmt := parseOne(t, `SELECT name, age FROM students WHERE age > 20;`)
	p, err := Build(stmt)
	require.NoError(t, err)

	proj, ok := p.(*Project)
	require.True(t, ok)
	require.Len(t, proj.Items, 2)

	// Bare (unqualified) columns conservatively stay on a Filter rather
	// than push into the scan, since there is no alias to attribute them
	// to without risking ambiguity in a future multi-table rewrite.
	filter, ok := proj.Child.(*Filter)
	require.True(t, ok)
	scan, ok := filter.Child.(*SeqScan)
	require.True(t, ok)
	require.Equal(t, "students", scan.Table)
	require.Nil(t, scan.Predicate)
}

func TestBuildSelectPushesQualifiedPredicateIntoScan(t *testing.T) {
	stmt := parseOne(t, `SELECT s.name FROM students s WHERE s.age > 20;`)
	p, err := Build(stmt)
	require.NoError(t, err)

	proj := p.(*Project)
	scan, ok := proj.Child.(*SeqScan)
	require.True(t, ok, "qualified predicate should be absorbed into the scan, leaving no Filter node")
	require.NotNil(t, scan.Predicate)
}

func TestBuildSelectJoinPushesPerSidePredicates(t *testing.T) {
	stmt := parseOne(t, `SELECT s.name, c.cname FROM students s JOIN courses c ON s.id = c.cid WHERE s.age > 20 AND c.cname = 'CS';`)
	p, err := Build(stmt)
	require.NoError(t, err)

	proj := p.(*Project)
	join, ok := proj.Child.(*NestedLoopJoin)
	require.True(t, ok)

	left, ok := join.Left.(*SeqScan)
	require.True(t, ok)
	require.NotNil(t, left.Predicate)

	right, ok := join.Right.(*SeqScan)
	require.True(t, ok)
	require.NotNil(t, right.Predicate)
}

func TestBuildSelectGroupByProducesAggregate(t *testing.T) {
	stmt := parseOne(t, `SELECT age, COUNT(*) FROM students GROUP BY age ORDER BY age DESC;`)
	p, err := Build(stmt)
	require.NoError(t, err)

	proj := p.(*Project)
	sort, ok := proj.Child.(*Sort)
	require.True(t, ok)
	require.Equal(t, "age", sort.Key.Column)
	require.True(t, sort.Key.Desc)

	agg, ok := sort.Child.(*Aggregate)
	require.True(t, ok)
	require.Equal(t, "age", agg.GroupKey)
	require.Len(t, agg.Aggregates, 1)
}

func TestBuildSelectNoGroupByStillAggregatesBareCall(t *testing.T) {
	stmt := parseOne(t, `SELECT COUNT(*) FROM students;`)
	p, err := Build(stmt)
	require.NoError(t, err)

	proj := p.(*Project)
	agg, ok := proj.Child.(*Aggregate)
	require.True(t, ok)
	require.Equal(t, "", agg.GroupKey)
}

func TestBuildExplainUnwrapsInner(t *testing.T) {
	stmt := parseOne(t, `EXPLAIN SELECT * FROM t;`)
	p, err := Build(stmt)
	require.NoError(t, err)
	_, ok := p.(*Project)
	require.True(t, ok)
}

func TestSplitConjunctsPreservesOrder(t *testing.T) {
	stmt := parseOne(t, `SELECT * FROM t WHERE a = 1 AND b = 2 AND c = 3;`)
	sel := stmt.(*parser.SelectStmt)
	conjuncts := parser.SplitConjuncts(sel.Where)
	require.Len(t, conjuncts, 3)
}
