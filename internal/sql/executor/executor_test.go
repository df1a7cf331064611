package executor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/relic/internal/bufferpool"
	"github.com/tuannm99/relic/internal/catalog"
	"github.com/tuannm99/relic/internal/heap"
	"github.com/tuannm99/relic/internal/sql/parser"
	"github.com/tuannm99/relic/internal/storage"
)

// memTables is a minimal TableProvider backed by real per-table files
// under a temp dir, enough to exercise the executor end to end without
// needing the full engine facade.
type memTables struct {
	dir    string
	tables map[string]*heap.Table
	pagers map[string]*storage.Pager
}

func newMemTables(t *testing.T) *memTables {
	return &memTables{dir: t.TempDir(), tables: map[string]*heap.Table{}, pagers: map[string]*storage.Pager{}}
}

func (m *memTables) OpenTable(name string) (*heap.Table, error) {
	if tbl, ok := m.tables[name]; ok {
		return tbl, nil
	}
	pager, err := storage.OpenPager(filepath.Join(m.dir, name+".tbl"))
	if err != nil {
		return nil, err
	}
	pool := bufferpool.NewPool(pager, bufferpool.DefaultCapacity, bufferpool.PolicyLRU)
	tbl := heap.NewTable(name, pool, 0)
	m.pagers[name] = pager
	m.tables[name] = tbl
	return tbl, nil
}

func newTestExecutor(t *testing.T) (*Executor, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.json"))
	require.NoError(t, err)
	ex := New(c, newMemTables(t))
	return ex, c
}

func run(t *testing.T, ex *Executor, sql string) *Result {
	t.Helper()
	stmts, errs := parser.ParseAll(sql)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)
	res, err := ex.Execute(stmts[0])
	require.NoError(t, err)
	return res
}

func runErr(t *testing.T, ex *Executor, sql string) error {
	t.Helper()
	stmts, errs := parser.ParseAll(sql)
	require.Empty(t, errs)
	require.Len(t, stmts, 1)
	_, err := ex.Execute(stmts[0])
	return err
}

func TestExecuteCreateTableAndInsertAndSelect(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE t (id INT PRIMARY KEY, n VARCHAR(4));`)
	res := run(t, ex, `INSERT INTO t VALUES (1, 'ab');`)
	require.Equal(t, int64(1), res.Affected)

	sel := run(t, ex, `SELECT * FROM t;`)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, int64(1), sel.Rows[0][0].Int)
	require.Equal(t, "ab", sel.Rows[0][1].Str)
}

// S1
func TestScenarioPrimaryKeyViolation(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE t(id INT PRIMARY KEY, n VARCHAR(4));`)
	run(t, ex, `INSERT INTO t VALUES (1,'ab');`)
	err := runErr(t, ex, `INSERT INTO t VALUES (1,'cd');`)
	require.Error(t, err)

	sel := run(t, ex, `SELECT * FROM t;`)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, "ab", sel.Rows[0][1].Str)
}

// S2
func TestScenarioVarcharLengthViolation(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE d(id INT PRIMARY KEY, s VARCHAR(8));`)
	err := runErr(t, ex, `INSERT INTO d VALUES (1,'Engineering');`)
	require.Error(t, err)

	sel := run(t, ex, `SELECT * FROM d;`)
	require.Empty(t, sel.Rows)
}

// S3
func TestScenarioWhereFilter(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE students(id INT PRIMARY KEY, name VARCHAR(16), age INT);`)
	run(t, ex, `INSERT INTO students VALUES (1,'Alice',20),(2,'Bob',22),(3,'Cindy',20);`)

	res := run(t, ex, `SELECT name, age FROM students WHERE age > 20;`)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "Bob", res.Rows[0][0].Str)
	require.Equal(t, int64(22), res.Rows[0][1].Int)
}

// S4
func TestScenarioJoin(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE students(id INT PRIMARY KEY, name VARCHAR(16), age INT);`)
	run(t, ex, `INSERT INTO students VALUES (1,'Alice',20),(2,'Bob',22);`)
	run(t, ex, `CREATE TABLE courses(cid INT PRIMARY KEY, cname VARCHAR(8));`)
	run(t, ex, `INSERT INTO courses VALUES (1,'CS'),(2,'OS');`)

	res := run(t, ex, `SELECT s.name, c.cname FROM students s JOIN courses c ON s.id = c.cid;`)
	require.Len(t, res.Rows, 2)
	require.Equal(t, "Alice", res.Rows[0][0].Str)
	require.Equal(t, "CS", res.Rows[0][1].Str)
	require.Equal(t, "Bob", res.Rows[1][0].Str)
	require.Equal(t, "OS", res.Rows[1][1].Str)
}

// S5
func TestScenarioGroupByOrderBy(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE students(id INT PRIMARY KEY, name VARCHAR(16), age INT);`)
	run(t, ex, `INSERT INTO students VALUES (1,'Alice',20),(2,'Bob',22),(3,'Cindy',20);`)

	res := run(t, ex, `SELECT age, COUNT(*) FROM students GROUP BY age ORDER BY age DESC;`)
	require.Len(t, res.Rows, 2)
	require.Equal(t, int64(22), res.Rows[0][0].Int)
	require.Equal(t, int64(1), res.Rows[0][1].Int)
	require.Equal(t, int64(20), res.Rows[1][0].Int)
	require.Equal(t, int64(2), res.Rows[1][1].Int)
}

func TestForeignKeyViolation(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE users(id INT PRIMARY KEY, name VARCHAR(8));`)
	run(t, ex, `CREATE TABLE orders(id INT PRIMARY KEY, user_id INT, FOREIGN KEY (user_id) REFERENCES users(id));`)
	err := runErr(t, ex, `INSERT INTO orders VALUES (1, 99);`)
	require.Error(t, err)

	run(t, ex, `INSERT INTO users VALUES (99, 'bob');`)
	res := run(t, ex, `INSERT INTO orders VALUES (1, 99);`)
	require.Equal(t, int64(1), res.Affected)
}

func TestUpdateAndDelete(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE t(id INT PRIMARY KEY, n VARCHAR(8));`)
	run(t, ex, `INSERT INTO t VALUES (1,'a'),(2,'b'),(3,'c');`)

	res := run(t, ex, `UPDATE t SET n = 'z' WHERE id = 2;`)
	require.Equal(t, int64(1), res.Affected)

	sel := run(t, ex, `SELECT * FROM t WHERE id = 2;`)
	require.Equal(t, "z", sel.Rows[0][1].Str)

	del := run(t, ex, `DELETE FROM t WHERE id = 1;`)
	require.Equal(t, int64(1), del.Affected)

	all := run(t, ex, `SELECT * FROM t;`)
	require.Len(t, all.Rows, 2)
}

func TestInsertLaterRowSurvivesEarlierRowFailure(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE t(id INT PRIMARY KEY, n VARCHAR(2));`)
	err := runErr(t, ex, `INSERT INTO t VALUES (1, 'toolong'), (2, 'ok');`)
	require.Error(t, err)

	sel := run(t, ex, `SELECT * FROM t;`)
	require.Len(t, sel.Rows, 1)
	require.Equal(t, int64(2), sel.Rows[0][0].Int)
}

func TestAvgPromotesToFloat(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE t(id INT PRIMARY KEY, v INT);`)
	run(t, ex, `INSERT INTO t VALUES (1, 2), (2, 3);`)

	res := run(t, ex, `SELECT AVG(v) FROM t;`)
	require.Len(t, res.Rows, 1)
	require.Equal(t, 2.5, res.Rows[0][0].Float)
}

func TestExplainExecutesInnerStatement(t *testing.T) {
	ex, _ := newTestExecutor(t)
	run(t, ex, `CREATE TABLE t(id INT PRIMARY KEY);`)
	run(t, ex, `INSERT INTO t VALUES (1);`)
	res := run(t, ex, `EXPLAIN SELECT * FROM t;`)
	require.Len(t, res.Rows, 1)
}
