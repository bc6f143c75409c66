package buffer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Litinum/dbbufferpool/internal/dberr"
)

// LRUReplacer evicts the least-recently-unpinned frame first.
//
// Backed by hashicorp/golang-lru's Cache rather than a hand-rolled
// doubly-linked list: Add on an existing key promotes it to
// most-recently-used, and RemoveOldest pops the least-recently-used entry,
// which is exactly the Victim/Unpin-promotes contract spec.md describes.
// Grounded on other_examples/bsnyl5-bustubgo__replacer.go, which reaches
// for the same library for the same reason.
type LRUReplacer struct {
	mu    sync.Mutex
	cache *lru.Cache[FrameID, struct{}]
}

// NewLRUReplacer returns an LRUReplacer with room for up to poolSize
// evictable frames — it never holds more than the pool has frames.
func NewLRUReplacer(poolSize int) *LRUReplacer {
	cache, err := lru.New[FrameID, struct{}](poolSize)
	dberr.Assert(err == nil, "lru.New rejected a positive size")
	return &LRUReplacer{cache: cache}
}

// Victim implements Replacer.
func (r *LRUReplacer) Victim() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, _, ok := r.cache.RemoveOldest()
	return id, ok
}

// Pin implements Replacer.
func (r *LRUReplacer) Pin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(id)
}

// Unpin implements Replacer. Re-unpinning an already-evictable frame
// promotes it to most-recently-used, matching spec.md's "remove then
// re-append at tail" note.
func (r *LRUReplacer) Unpin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(id, struct{}{})
}

// Size implements Replacer.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
