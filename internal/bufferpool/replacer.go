package bufferpool

import "container/list"

// replacer tracks which resident frames are eligible for eviction and
// decides, among those, which to evict next.
type replacer interface {
	recordAccess(frameIdx int)
	setEvictable(frameIdx int, evictable bool)
	evict() (frameIdx int, ok bool)
}

// lruReplacer evicts the least-recently-accessed evictable frame. Frames
// are kept in a container/list ordered by recency, mirroring the
// MoveToFront/Back/Remove shape used elsewhere in this codebase for LRU
// bookkeeping.
type lruReplacer struct {
	order     *list.List
	elems     map[int]*list.Element
	evictable map[int]bool
}

func newLRUReplacer(capacity int) *lruReplacer {
	return &lruReplacer{
		order:     list.New(),
		elems:     make(map[int]*list.Element, capacity),
		evictable: make(map[int]bool, capacity),
	}
}

func (r *lruReplacer) recordAccess(frameIdx int) {
	if e, ok := r.elems[frameIdx]; ok {
		r.order.MoveToFront(e)
		return
	}
	r.elems[frameIdx] = r.order.PushFront(frameIdx)
}

func (r *lruReplacer) setEvictable(frameIdx int, evictable bool) {
	r.evictable[frameIdx] = evictable
}

func (r *lruReplacer) evict() (int, bool) {
	for e := r.order.Back(); e != nil; e = e.Prev() {
		idx := e.Value.(int)
		if r.evictable[idx] {
			r.order.Remove(e)
			delete(r.elems, idx)
			delete(r.evictable, idx)
			return idx, true
		}
	}
	return 0, false
}

// fifoReplacer evicts the frame that has been resident longest, regardless
// of how recently it was accessed: insertion order is recorded once and
// never reshuffled on access.
type fifoReplacer struct {
	order     *list.List
	elems     map[int]*list.Element
	evictable map[int]bool
}

func newFIFOReplacer(capacity int) *fifoReplacer {
	return &fifoReplacer{
		order:     list.New(),
		elems:     make(map[int]*list.Element, capacity),
		evictable: make(map[int]bool, capacity),
	}
}

func (r *fifoReplacer) recordAccess(frameIdx int) {
	if _, ok := r.elems[frameIdx]; ok {
		return
	}
	r.elems[frameIdx] = r.order.PushFront(frameIdx)
}

func (r *fifoReplacer) setEvictable(frameIdx int, evictable bool) {
	r.evictable[frameIdx] = evictable
}

func (r *fifoReplacer) evict() (int, bool) {
	for e := r.order.Back(); e != nil; e = e.Prev() {
		idx := e.Value.(int)
		if r.evictable[idx] {
			r.order.Remove(e)
			delete(r.elems, idx)
			delete(r.evictable, idx)
			return idx, true
		}
	}
	return 0, false
}
