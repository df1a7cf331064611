package storage

import (
	"fmt"
	"os"
)

// Pager maps (pageID) to byte offsets within a single table's on-disk file.
// Each table gets its own file, a sequence of PageSize-byte pages
// concatenated in pageID order with no gaps.
type Pager struct {
	file      *os.File
	path      string
	pageCount uint32
}

// OpenPager opens (creating if necessary) the table file at path.
func OpenPager(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open table file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat table file %s: %w", path, err)
	}
	return &Pager{
		file:      f,
		path:      path,
		pageCount: uint32(info.Size() / PageSize),
	}, nil
}

// PageCount returns the number of pages currently committed to disk.
func (pg *Pager) PageCount() uint32 { return pg.pageCount }

// ReadPage returns the page at pageID. Pages beyond the current end of file
// come back freshly initialized (never touching disk) so that callers can
// treat "fetch the next page to grow into" and "fetch an existing page"
// uniformly.
func (pg *Pager) ReadPage(pageID uint32) (*Page, error) {
	if pageID >= pg.pageCount {
		return NewPage(pageID), nil
	}
	buf := make([]byte, PageSize)
	if _, err := pg.file.ReadAt(buf, int64(pageID)*PageSize); err != nil {
		return nil, fmt.Errorf("storage: read page %d of %s: %w", pageID, pg.path, err)
	}
	return WrapPage(buf)
}

// WritePage persists page at pageID, extending the file (and pageCount) if
// pageID is at or beyond the current end.
func (pg *Pager) WritePage(pageID uint32, page *Page) error {
	if _, err := pg.file.WriteAt(page.Buf, int64(pageID)*PageSize); err != nil {
		return fmt.Errorf("storage: write page %d of %s: %w", pageID, pg.path, err)
	}
	if pageID >= pg.pageCount {
		pg.pageCount = pageID + 1
	}
	return nil
}

// Sync flushes the underlying file to stable storage.
func (pg *Pager) Sync() error { return pg.file.Sync() }

// Close closes the underlying file handle.
func (pg *Pager) Close() error { return pg.file.Close() }
