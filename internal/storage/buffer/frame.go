package buffer

import (
	"sync"

	"github.com/Litinum/dbbufferpool/internal/storage/page"
)

// frame is one slot in an Instance's fixed-size array. Its pageID and
// pinCount are metadata owned by the instance's pool_latch (Instance.mu):
// pinCount is only read or written with that mutex held. pageID is too,
// except that Fetch/New provisioning, Delete and abortProvision set it
// under this frame's write latch after releasing the pool latch, and
// Fetch's hit path reads it under the read latch to detect an aborted
// load (see Instance.Fetch). Its data, lsn, and dirty
// fields travel with mu below, the frame-local latch, since dirty tracks
// the payload's on-disk sync state and is touched by writeBack while
// only that latch — not the pool latch — is held.
//
// This split — coarse pool-wide latch for routing/pin bookkeeping, fine
// per-frame latch for the payload and its sync state — is spec.md §5's
// two-level concurrency model.
type frame struct {
	mu sync.RWMutex

	pageID   page.ID
	pinCount int32
	dirty    bool

	data [page.DataSize]byte
	lsn  uint64
}
