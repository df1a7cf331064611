// Package bufferpool caches a single table's pages in memory, pinning
// frames in use and evicting via a selectable LRU or FIFO policy once the
// pool fills up.
package bufferpool

import (
	"errors"
	"fmt"

	"github.com/tuannm99/relic/internal/storage"
)

// DefaultCapacity is the frame count used when a table's configuration
// does not override it.
const DefaultCapacity = 16

var (
	ErrNoFreeFrame = errors.New("bufferpool: no unpinned frame available to evict")
	ErrPagePinned  = errors.New("bufferpool: unpin of a page that is not pinned")
)

// Policy selects the replacement algorithm used once the pool is full.
type Policy int

const (
	PolicyLRU Policy = iota
	PolicyFIFO
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "lru", "LRU":
		return PolicyLRU, nil
	case "fifo", "FIFO":
		return PolicyFIFO, nil
	default:
		return 0, fmt.Errorf("bufferpool: unsupported policy %q (want LRU or FIFO)", s)
	}
}

func (p Policy) String() string {
	if p == PolicyFIFO {
		return "FIFO"
	}
	return "LRU"
}

// frame is one slot of the pool's fixed-size frame array.
type frame struct {
	pageID uint32
	page   *storage.Page
	pin    int
	dirty  bool
}

// Manager is the interface the heap layer programs against; it hides
// whether a page is resident, borrowed from disk, or newly allocated.
type Manager interface {
	GetPage(pageID uint32) (*storage.Page, error)
	Unpin(pageID uint32, dirty bool) error
	FlushAll() error
}

// Pool is a bounded, pin-aware cache of one table's pages.
type Pool struct {
	pager    *storage.Pager
	capacity int
	frames   []*frame
	byPageID map[uint32]int // pageID -> index into frames
	replacer replacer
}

// NewPool builds a pool of capacity frames backed by pager, evicting via
// policy once full.
func NewPool(pager *storage.Pager, capacity int, policy Policy) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	var r replacer
	switch policy {
	case PolicyFIFO:
		r = newFIFOReplacer(capacity)
	default:
		r = newLRUReplacer(capacity)
	}
	return &Pool{
		pager:    pager,
		capacity: capacity,
		byPageID: make(map[uint32]int, capacity),
		replacer: r,
	}
}

// GetPage returns the requested page, pinned. Callers must call Unpin
// exactly once per successful GetPage.
func (p *Pool) GetPage(pageID uint32) (*storage.Page, error) {
	if idx, ok := p.byPageID[pageID]; ok {
		fr := p.frames[idx]
		fr.pin++
		p.replacer.recordAccess(idx)
		p.replacer.setEvictable(idx, false)
		return fr.page, nil
	}

	idx, err := p.allocFrame()
	if err != nil {
		return nil, err
	}
	page, err := p.pager.ReadPage(pageID)
	if err != nil {
		return nil, err
	}
	p.frames[idx] = &frame{pageID: pageID, page: page, pin: 1}
	p.byPageID[pageID] = idx
	p.replacer.recordAccess(idx)
	p.replacer.setEvictable(idx, false)
	return page, nil
}

// allocFrame returns an index ready to hold a new page: either an unused
// slot (pool not yet at capacity) or an evicted one.
func (p *Pool) allocFrame() (int, error) {
	if len(p.frames) < p.capacity {
		p.frames = append(p.frames, nil)
		return len(p.frames) - 1, nil
	}
	idx, ok := p.replacer.evict()
	if !ok {
		return 0, ErrNoFreeFrame
	}
	victim := p.frames[idx]
	if victim.dirty {
		if err := p.pager.WritePage(victim.pageID, victim.page); err != nil {
			return 0, err
		}
	}
	delete(p.byPageID, victim.pageID)
	return idx, nil
}

// Unpin releases one pin on pageID's frame, marking it dirty if dirty is
// true. Once the pin count reaches zero the frame becomes eligible for
// eviction.
func (p *Pool) Unpin(pageID uint32, dirty bool) error {
	idx, ok := p.byPageID[pageID]
	if !ok {
		return fmt.Errorf("bufferpool: unpin unknown page %d", pageID)
	}
	fr := p.frames[idx]
	if fr.pin == 0 {
		return ErrPagePinned
	}
	if dirty {
		fr.dirty = true
	}
	fr.pin--
	if fr.pin == 0 {
		p.replacer.setEvictable(idx, true)
	}
	return nil
}

// FlushAll writes every dirty resident frame to disk.
func (p *Pool) FlushAll() error {
	for _, fr := range p.frames {
		if fr == nil || !fr.dirty {
			continue
		}
		if err := p.pager.WritePage(fr.pageID, fr.page); err != nil {
			return err
		}
		fr.dirty = false
	}
	return p.pager.Sync()
}
