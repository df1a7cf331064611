// Package heap implements the row-level API over a table's pages: append,
// point lookup, in-place update (falling back to tombstone+append when a
// row grows), delete and full-table scan.
package heap

import (
	"github.com/tuannm99/relic/internal/storage"
	"github.com/tuannm99/relic/internal/value"
)

// HeapPage wraps a raw storage.Page with row-level Insert/Read, operating
// on []value.Value instead of raw bytes.
type HeapPage struct {
	Page *storage.Page
}

func NewHeapPage(p *storage.Page) HeapPage { return HeapPage{Page: p} }

func (hp *HeapPage) InsertRow(values []value.Value) (int, error) {
	return hp.Page.InsertTuple(storage.EncodeRow(values))
}

func (hp *HeapPage) ReadRow(slot int) ([]value.Value, error) {
	data, err := hp.Page.ReadTuple(slot)
	if err != nil {
		return nil, err
	}
	return storage.DecodeRow(data)
}

// UpdateRow attempts to overwrite the row in place. Returns storage.ErrNoSpace
// if the new row no longer fits in the slot's existing length, in which case
// the caller (Table.Update) falls back to tombstone+append.
func (hp *HeapPage) UpdateRow(slot int, values []value.Value) error {
	return hp.Page.UpdateTuple(slot, storage.EncodeRow(values))
}

func (hp *HeapPage) DeleteRow(slot int) error {
	return hp.Page.DeleteTuple(slot)
}
