package heap

import (
	"github.com/tuannm99/relic/internal/bufferpool"
	"github.com/tuannm99/relic/internal/storage"
	"github.com/tuannm99/relic/internal/value"
)

// Table is the row-level handle onto one table's pages, mediated through a
// buffer pool. Pages are allocated lazily: Insert always tries the last
// known page first and only grows the file once that page reports
// storage.ErrNoSpace.
type Table struct {
	Name      string
	BP        bufferpool.Manager
	PageCount uint32
}

func NewTable(name string, bp bufferpool.Manager, pageCount uint32) *Table {
	return &Table{Name: name, BP: bp, PageCount: pageCount}
}

// Insert appends values as a new row, growing the table file with a fresh
// page whenever the current last page has no room.
func (t *Table) Insert(values []value.Value) (TID, error) {
	var pageID uint32
	if t.PageCount == 0 {
		pageID = 0
		t.PageCount = 1
	} else {
		pageID = t.PageCount - 1
	}

	for {
		p, err := t.BP.GetPage(pageID)
		if err != nil {
			return TID{}, err
		}

		hp := HeapPage{Page: p}
		slot, err := hp.InsertRow(values)
		if err == storage.ErrNoSpace {
			_ = t.BP.Unpin(pageID, false)
			pageID = t.PageCount
			t.PageCount++
			continue
		}
		if err != nil {
			_ = t.BP.Unpin(pageID, false)
			return TID{}, err
		}

		if err := t.BP.Unpin(pageID, true); err != nil {
			return TID{}, err
		}
		return TID{PageID: pageID, Slot: uint16(slot)}, nil
	}
}

// Get reads a single row by TID.
func (t *Table) Get(id TID) ([]value.Value, error) {
	p, err := t.BP.GetPage(id.PageID)
	if err != nil {
		return nil, err
	}
	hp := HeapPage{Page: p}
	row, err := hp.ReadRow(int(id.Slot))
	_ = t.BP.Unpin(id.PageID, false)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update overwrites the row identified by id. If the new values no longer
// fit in the slot's existing length, the old slot is tombstoned and a new
// row is appended; the TID returned reflects its possibly-new location.
func (t *Table) Update(id TID, values []value.Value) (TID, error) {
	p, err := t.BP.GetPage(id.PageID)
	if err != nil {
		return TID{}, err
	}
	hp := HeapPage{Page: p}
	err = hp.UpdateRow(int(id.Slot), values)
	if err == storage.ErrNoSpace {
		if derr := hp.DeleteRow(int(id.Slot)); derr != nil {
			_ = t.BP.Unpin(id.PageID, false)
			return TID{}, derr
		}
		if uerr := t.BP.Unpin(id.PageID, true); uerr != nil {
			return TID{}, uerr
		}
		return t.Insert(values)
	}
	if err != nil {
		_ = t.BP.Unpin(id.PageID, false)
		return TID{}, err
	}
	if err := t.BP.Unpin(id.PageID, true); err != nil {
		return TID{}, err
	}
	return id, nil
}

// Delete tombstones the row identified by id.
func (t *Table) Delete(id TID) error {
	p, err := t.BP.GetPage(id.PageID)
	if err != nil {
		return err
	}
	hp := HeapPage{Page: p}
	err = hp.DeleteRow(int(id.Slot))
	_ = t.BP.Unpin(id.PageID, err == nil)
	return err
}

// Scan visits every live row in pageID order, stopping (and returning the
// error) if fn returns one.
func (t *Table) Scan(fn func(id TID, row []value.Value) error) error {
	for pageID := uint32(0); pageID < t.PageCount; pageID++ {
		p, err := t.BP.GetPage(pageID)
		if err != nil {
			return err
		}
		hp := HeapPage{Page: p}

		for slot := 0; slot < hp.Page.NumSlots(); slot++ {
			if !hp.Page.IsLiveSlot(slot) {
				continue
			}
			row, err := hp.ReadRow(slot)
			if err != nil {
				_ = t.BP.Unpin(pageID, false)
				return err
			}
			if err := fn(TID{PageID: pageID, Slot: uint16(slot)}, row); err != nil {
				_ = t.BP.Unpin(pageID, false)
				return err
			}
		}
		_ = t.BP.Unpin(pageID, false)
	}
	return nil
}

// Flush writes every dirty page of the table to disk.
func (t *Table) Flush() error {
	return t.BP.FlushAll()
}
