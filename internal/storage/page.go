package storage

import "encoding/binary"

// Header offsets, per the on-disk layout:
//
//	+------------------+ 0
//	| magic   uint16   |
//	| pageID  uint32   |
//	| rowCount uint16  |
//	| freeCursor uint16|
//	| slotDirSize uint16|
//	+------------------+ 12  (HeaderSize)
//	| slot directory   | <-- grows forward, one 6-byte entry per row ever inserted
//	+------------------+
//	|   free space     |
//	+------------------+ <-- freeCursor
//	|   row heap       | <-- grows backward from PageSize
//	+------------------+ PageSize
const (
	offMagic       = 0
	offPageID      = 2
	offRowCount    = 6
	offFreeCursor  = 8
	offSlotDirSize = 10
)

// Slot is one entry of the slot directory.
type Slot struct {
	Offset uint16
	Length uint16
	Flags  uint16
}

func (s Slot) Tombstoned() bool { return s.Flags&SlotFlagTombstone != 0 }

// Page is one fixed-size slotted page, held either in the buffer pool or
// freshly read from a table file.
type Page struct {
	Buf []byte
}

// NewPage allocates a zeroed, initialized page for pageID.
func NewPage(pageID uint32) *Page {
	p := &Page{Buf: make([]byte, PageSize)}
	p.Init(pageID)
	return p
}

// WrapPage wraps an existing PageSize-length buffer (e.g. read off disk)
// without touching its contents.
func WrapPage(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, ErrWrongSize
	}
	return &Page{Buf: buf}, nil
}

// Init resets the page to an empty state carrying pageID. Any existing
// tuple data is discarded.
func (p *Page) Init(pageID uint32) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	binary.LittleEndian.PutUint16(p.Buf[offMagic:], PageMagic)
	p.setPageID(pageID)
	p.setRowCount(0)
	p.setFreeCursor(PageSize)
	p.setSlotDirSize(0)
}

// IsUninitialized reports whether the page has never been through Init
// (e.g. a page read past the current end of a table file).
func (p *Page) IsUninitialized() bool {
	return binary.LittleEndian.Uint16(p.Buf[offMagic:]) != PageMagic
}

func (p *Page) PageID() uint32 { return binary.LittleEndian.Uint32(p.Buf[offPageID:]) }

func (p *Page) setPageID(v uint32) { binary.LittleEndian.PutUint32(p.Buf[offPageID:], v) }

func (p *Page) RowCount() uint16 { return binary.LittleEndian.Uint16(p.Buf[offRowCount:]) }

func (p *Page) setRowCount(v uint16) { binary.LittleEndian.PutUint16(p.Buf[offRowCount:], v) }

func (p *Page) freeCursor() uint16 { return binary.LittleEndian.Uint16(p.Buf[offFreeCursor:]) }

func (p *Page) setFreeCursor(v uint16) { binary.LittleEndian.PutUint16(p.Buf[offFreeCursor:], v) }

func (p *Page) slotDirSize() uint16 { return binary.LittleEndian.Uint16(p.Buf[offSlotDirSize:]) }

func (p *Page) setSlotDirSize(v uint16) {
	binary.LittleEndian.PutUint16(p.Buf[offSlotDirSize:], v)
}

// NumSlots returns the number of slot directory entries, including
// tombstoned ones.
func (p *Page) NumSlots() int { return int(p.slotDirSize()) }

// FreeSpace returns the number of bytes available for a new slot plus its
// row payload.
func (p *Page) FreeSpace() int {
	slotDirEnd := HeaderSize + p.NumSlots()*SlotSize
	return int(p.freeCursor()) - slotDirEnd
}

func (p *Page) slotOff(i int) int { return HeaderSize + i*SlotSize }

func (p *Page) getSlot(i int) (Slot, error) {
	if i < 0 || i >= p.NumSlots() {
		return Slot{}, ErrBadSlot
	}
	o := p.slotOff(i)
	return Slot{
		Offset: binary.LittleEndian.Uint16(p.Buf[o:]),
		Length: binary.LittleEndian.Uint16(p.Buf[o+2:]),
		Flags:  binary.LittleEndian.Uint16(p.Buf[o+4:]),
	}, nil
}

func (p *Page) putSlot(i int, s Slot) error {
	if i < 0 || i > p.NumSlots() {
		return ErrBadSlot
	}
	o := p.slotOff(i)
	if o+SlotSize > len(p.Buf) {
		return ErrCorruption
	}
	binary.LittleEndian.PutUint16(p.Buf[o:], s.Offset)
	binary.LittleEndian.PutUint16(p.Buf[o+2:], s.Length)
	binary.LittleEndian.PutUint16(p.Buf[o+4:], s.Flags)
	return nil
}

// InsertTuple appends row to the row heap and allocates a new slot for it,
// returning the slot index. Returns ErrNoSpace if the page cannot fit the
// row plus one more slot entry, ErrTupleTooLarge if the row could never fit
// in any empty page.
func (p *Page) InsertTuple(row []byte) (int, error) {
	maxInline := PageSize - HeaderSize - SlotSize
	if len(row) > maxInline {
		return -1, ErrTupleTooLarge
	}
	need := len(row) + SlotSize
	if p.FreeSpace() < need {
		return -1, ErrNoSpace
	}
	newCursor := int(p.freeCursor()) - len(row)
	copy(p.Buf[newCursor:], row)
	p.setFreeCursor(uint16(newCursor))

	idx := p.NumSlots()
	if err := p.putSlot(idx, Slot{Offset: uint16(newCursor), Length: uint16(len(row)), Flags: 0}); err != nil {
		return -1, err
	}
	p.setSlotDirSize(uint16(idx + 1))
	p.setRowCount(p.RowCount() + 1)
	return idx, nil
}

// ReadTuple returns the raw row bytes for slot, or ErrTombstoned if the row
// was deleted.
func (p *Page) ReadTuple(slot int) ([]byte, error) {
	s, err := p.getSlot(slot)
	if err != nil {
		return nil, err
	}
	if s.Tombstoned() {
		return nil, ErrTombstoned
	}
	start, end := int(s.Offset), int(s.Offset)+int(s.Length)
	if start < 0 || end > PageSize || start > end {
		return nil, ErrCorruption
	}
	return p.Buf[start:end], nil
}

// UpdateTuple overwrites slot's row in place. It only succeeds when newRow
// is no longer than the slot's current length; callers whose new row grew
// must tombstone the old slot and InsertTuple elsewhere instead.
func (p *Page) UpdateTuple(slot int, newRow []byte) error {
	s, err := p.getSlot(slot)
	if err != nil {
		return err
	}
	if s.Tombstoned() {
		return ErrTombstoned
	}
	if len(newRow) > int(s.Length) {
		return ErrNoSpace
	}
	copy(p.Buf[int(s.Offset):], newRow)
	return p.putSlot(slot, Slot{Offset: s.Offset, Length: uint16(len(newRow)), Flags: s.Flags})
}

// DeleteTuple tombstones slot. The slot entry remains (preserving every
// other slot's index) but future scans and reads skip it.
func (p *Page) DeleteTuple(slot int) error {
	s, err := p.getSlot(slot)
	if err != nil {
		return err
	}
	if s.Tombstoned() {
		return ErrTombstoned
	}
	return p.putSlot(slot, Slot{Offset: s.Offset, Length: s.Length, Flags: s.Flags | SlotFlagTombstone})
}

// IsLiveSlot reports whether slot holds a non-tombstoned row.
func (p *Page) IsLiveSlot(slot int) bool {
	s, err := p.getSlot(slot)
	if err != nil {
		return false
	}
	return !s.Tombstoned()
}
