package buffer

import (
	"sync/atomic"

	"github.com/Litinum/dbbufferpool/internal/storage/page"
)

// Handle is the caller's proof that a page is pinned resident in some
// frame. It is returned by Instance.Fetch/New and must be released by
// exactly one call to Unpin; a second call panics, matching spec.md §7's
// "double-unpin is a programmer error, not a runtime condition" rule.
//
// Handles are not safe to share across goroutines concurrently calling
// Unpin, but concurrent readers/writers of the page's Data are fine as
// long as they take RLock/Lock appropriately — the same discipline the
// frame's own latch enforces internally.
type Handle struct {
	pool     *Instance
	frameIdx FrameID
	released atomic.Bool
}

// PageID returns the id of the page this handle pins. Stable for the
// handle's lifetime: the frame cannot be reused for a different page
// while this handle's pin is outstanding.
func (h *Handle) PageID() page.ID {
	return h.pool.frames[h.frameIdx].pageID
}

// RLock acquires the frame's content latch for reading Data.
func (h *Handle) RLock() { h.pool.frames[h.frameIdx].mu.RLock() }

// RUnlock releases a read latch taken by RLock.
func (h *Handle) RUnlock() { h.pool.frames[h.frameIdx].mu.RUnlock() }

// Lock acquires the frame's content latch for mutating Data.
func (h *Handle) Lock() { h.pool.frames[h.frameIdx].mu.Lock() }

// Unlock releases a write latch taken by Lock.
func (h *Handle) Unlock() { h.pool.frames[h.frameIdx].mu.Unlock() }

// Data returns the frame's payload buffer. Callers must hold RLock or
// Lock (via the methods above) before reading or writing it.
func (h *Handle) Data() []byte {
	return h.pool.frames[h.frameIdx].data[:]
}

// Unpin releases this handle's pin, per Instance.Unpin's contract. It
// panics if called more than once on the same handle.
func (h *Handle) Unpin(isDirty bool) bool {
	if h.released.Swap(true) {
		panic("dbbufferpool: handle unpinned twice")
	}
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.pool.unpinFrameLocked(h.frameIdx, isDirty)
}
