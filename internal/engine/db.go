// Package engine wires together the catalog, buffer pool and heap
// storage into the single facade the SQL executor opens tables
// through.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tuannm99/relic/internal/bufferpool"
	"github.com/tuannm99/relic/internal/catalog"
	"github.com/tuannm99/relic/internal/config"
	"github.com/tuannm99/relic/internal/heap"
	"github.com/tuannm99/relic/internal/sql/executor"
	"github.com/tuannm99/relic/internal/storage"
)

var _ executor.TableProvider = (*Database)(nil)

// openTable bundles the handles a table needs closed together: the
// heap.Table the executor reads and writes, and the pager backing its
// buffer pool.
type openTable struct {
	table *heap.Table
	pager *storage.Pager
}

// Database is the on-disk database: one catalog.json plus one *.dat
// file per table, each with its own buffer pool. It implements
// executor.TableProvider, lazily opening (and caching) a table's
// handle the first time a statement touches it.
type Database struct {
	dataDir  string
	policy   bufferpool.Policy
	capacity int

	Catalog *catalog.Catalog

	mu     sync.Mutex
	tables map[string]*openTable
}

// Open loads (creating if absent) the catalog at dataDir/catalog.json
// and returns a Database ready to serve OpenTable calls.
func Open(dataDir string, cfg *config.Config) (*Database, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: mkdir %s: %w", dataDir, err)
	}
	c, err := catalog.Open(filepath.Join(dataDir, "catalog.json"))
	if err != nil {
		return nil, err
	}
	policy, err := bufferpool.ParsePolicy(cfg.BufferPool.Policy)
	if err != nil {
		return nil, err
	}
	capacity := cfg.BufferPool.Capacity
	if capacity <= 0 {
		capacity = bufferpool.DefaultCapacity
	}
	return &Database{
		dataDir:  dataDir,
		policy:   policy,
		capacity: capacity,
		Catalog:  c,
		tables:   make(map[string]*openTable),
	}, nil
}

func (db *Database) pagesDir() string {
	return filepath.Join(db.dataDir, "pages")
}

// tablePath returns the single file holding every page of table name,
// concatenated in pageID order: data/pages/<table>.dat.
func (db *Database) tablePath(name string) string {
	return filepath.Join(db.pagesDir(), name+".dat")
}

// OpenTable returns the cached handle for name, opening its file (and
// rehydrating PageCount from the catalog) the first time it is asked
// for. The catalog entry must already exist; CREATE TABLE registers it
// before any row is ever written.
func (db *Database) OpenTable(name string) (*heap.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if ot, ok := db.tables[name]; ok {
		return ot.table, nil
	}

	schema, err := db.Catalog.Table(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(db.pagesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("engine: mkdir %s: %w", db.pagesDir(), err)
	}
	pager, err := storage.OpenPager(db.tablePath(name))
	if err != nil {
		return nil, err
	}
	pool := bufferpool.NewPool(pager, db.capacity, db.policy)
	tbl := heap.NewTable(name, pool, schema.PageCount)

	db.tables[name] = &openTable{table: tbl, pager: pager}
	return tbl, nil
}

// DropTable removes name from the catalog and deletes its backing
// file. Any cached handle for it is closed first.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	if ot, ok := db.tables[name]; ok {
		if err := ot.table.Flush(); err != nil {
			slog.Warn("engine: flush before drop", "table", name, "err", err)
		}
		_ = ot.pager.Close()
		delete(db.tables, name)
	}
	db.mu.Unlock()

	if err := db.Catalog.DropTable(name); err != nil {
		return err
	}
	if err := os.Remove(db.tablePath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("engine: remove table file for %s: %w", name, err)
	}
	return nil
}

// Close flushes and closes every table handle opened during this
// session. It does not remove any on-disk data.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var firstErr error
	for name, ot := range db.tables {
		if err := ot.table.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("engine: flush table %s: %w", name, err)
		}
		if err := ot.pager.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("engine: close table %s: %w", name, err)
		}
		delete(db.tables, name)
	}
	return firstErr
}

// SyncPageCounts persists the current PageCount of every open table
// into the catalog, used by the shell after a batch of statements
// completes so a later process sees an up to date catalog even if the
// executor itself did not happen to touch that table's count this run.
func (db *Database) SyncPageCounts() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for name, ot := range db.tables {
		if err := db.Catalog.SetPageCount(name, ot.table.PageCount); err != nil {
			return err
		}
	}
	return nil
}
