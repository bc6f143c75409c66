// Package buffer implements the disk-backed buffer pool: the Replacer
// victim-selection policies (C1), a single BufferPoolInstance (C2), and
// ParallelBufferPool sharding across several instances (C3).
//
// Grounded on the teacher's internal/storage/buffer package, which split
// the same three concerns across pool.go/pool_lru.go/pool_clock.go and a
// Replacer interface in replacer.go — kept here, with the bodies rebuilt
// against this module's page/disk/wal packages instead of the teacher's.
package buffer

// FrameID indexes a frame slot within a single BufferPoolInstance. It is
// never persisted and never crosses instance boundaries.
type FrameID = int

// Replacer selects which unpinned frame to evict next. A frame enters the
// replacer's evictable set on Unpin (when its pin count drops to zero) and
// leaves it either through Victim, when the pool claims it for reuse, or
// through Pin, when a caller re-fetches or flushes it or the pool deletes
// its page. Implementations must be safe under the
// pool's own pool_latch: the pool never calls a Replacer method
// concurrently with another Replacer method, so implementations are free
// to use their own internal locking or none at all, as convenient.
type Replacer interface {
	// Victim removes and returns one evictable frame id, or (0, false) if
	// the evictable set is empty. Which frame is chosen is the policy.
	Victim() (FrameID, bool)

	// Pin removes id from the evictable set if present. Idempotent: pinning
	// a frame already absent from the set is not an error.
	Pin(id FrameID)

	// Unpin adds id to the evictable set. Idempotent: unpinning a frame
	// already present is not an error, though policies may use a repeat
	// Unpin to refresh recency (LRU) or the reference bit (Clock).
	Unpin(id FrameID)

	// Size reports the number of frames currently evictable.
	Size() int
}
