package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuannm99/relic/internal/storage"
)

func newTestPager(t *testing.T) *storage.Pager {
	t.Helper()
	pg, err := storage.OpenPager(filepath.Join(t.TempDir(), "t.tbl"))
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	return pg
}

func TestPoolGetPageCachesAndPins(t *testing.T) {
	pager := newTestPager(t)
	pool := NewPool(pager, 2, PolicyLRU)

	p0, err := pool.GetPage(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), p0.PageID())

	again, err := pool.GetPage(0)
	require.NoError(t, err)
	require.Same(t, p0, again)

	require.NoError(t, pool.Unpin(0, false))
	require.NoError(t, pool.Unpin(0, false))
}

func TestPoolLRUEvictsLeastRecentlyUsed(t *testing.T) {
	pager := newTestPager(t)
	pool := NewPool(pager, 2, PolicyLRU)

	_, err := pool.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, false))

	_, err = pool.GetPage(1)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(1, false))

	// touch page 0 again so it becomes more-recently-used than page 1
	_, err = pool.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, false))

	// inserting page 2 should evict page 1, not page 0
	_, err = pool.GetPage(2)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(2, false))

	require.Contains(t, pool.byPageID, uint32(0))
	require.NotContains(t, pool.byPageID, uint32(1))
}

func TestPoolFIFOEvictsInsertionOrderRegardlessOfAccess(t *testing.T) {
	pager := newTestPager(t)
	pool := NewPool(pager, 2, PolicyFIFO)

	_, err := pool.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, false))

	_, err = pool.GetPage(1)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(1, false))

	// re-accessing page 0 must NOT protect it under FIFO
	_, err = pool.GetPage(0)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, false))

	_, err = pool.GetPage(2)
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(2, false))

	require.NotContains(t, pool.byPageID, uint32(0))
	require.Contains(t, pool.byPageID, uint32(1))
}

func TestPoolPinnedFrameIsNotEvicted(t *testing.T) {
	pager := newTestPager(t)
	pool := NewPool(pager, 1, PolicyLRU)

	_, err := pool.GetPage(0)
	require.NoError(t, err) // page 0 stays pinned, never unpinned

	_, err = pool.GetPage(1)
	require.ErrorIs(t, err, ErrNoFreeFrame)
}

func TestPoolFlushAllWritesDirtyPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.tbl")
	pager, err := storage.OpenPager(path)
	require.NoError(t, err)
	pool := NewPool(pager, 1, PolicyLRU)

	page, err := pool.GetPage(0)
	require.NoError(t, err)
	_, err = page.InsertTuple([]byte("row"))
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(0, true))
	require.NoError(t, pool.FlushAll())
	require.NoError(t, pager.Close())

	pager2, err := storage.OpenPager(path)
	require.NoError(t, err)
	defer pager2.Close()
	reread, err := pager2.ReadPage(0)
	require.NoError(t, err)
	row, err := reread.ReadTuple(0)
	require.NoError(t, err)
	require.Equal(t, "row", string(row))
}
