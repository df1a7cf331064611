package storage

import "errors"

// PageSize is the fixed size of every page on disk and in the buffer pool.
const PageSize = 4096

// HeaderSize is the number of bytes occupied by the fixed page header
// (magic, pageID, rowCount, freeCursor, slotDirSize).
const HeaderSize = 12

// SlotSize is the width in bytes of a single slot directory entry
// (offset uint16, length uint16, flags uint16).
const SlotSize = 6

// PageMagic identifies a page that has been through Init. A freshly
// allocated, never-written page has a zero magic and must be initialized
// before use.
const PageMagic uint16 = 0xD17A

// SlotFlagTombstone marks a slot whose row has been deleted. The slot slab
// stays allocated (slot indices never shift) but ReadTuple/Scan skip it.
const SlotFlagTombstone uint16 = 1 << 0

var (
	ErrTupleTooLarge = errors.New("storage: tuple too large to ever fit in a page")
	ErrNoSpace       = errors.New("storage: not enough free space in page")
	ErrBadSlot       = errors.New("storage: invalid slot index")
	ErrTombstoned    = errors.New("storage: slot has been deleted")
	ErrCorruption    = errors.New("storage: corrupt slot or tuple bounds")
	ErrWrongSize     = errors.New("storage: buffer size != PageSize")
)
