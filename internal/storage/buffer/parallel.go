package buffer

import (
	stderrors "errors"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/Litinum/dbbufferpool/internal/dberr"
	"github.com/Litinum/dbbufferpool/internal/storage/disk"
	"github.com/Litinum/dbbufferpool/internal/storage/page"
	"github.com/Litinum/dbbufferpool/internal/wal"
)

// ParallelBufferPool is C3: several Instances, each owning the residue
// class of page ids congruent to its own index modulo the shard count.
// Routing a Fetch/Unpin/Flush/Delete by an existing page id is a pure
// function of that id; New round-robins across shards so allocation load
// spreads evenly rather than piling onto shard 0.
//
// Grounded on
// original_source/bustub-master/src/buffer/parallel_buffer_pool_manager.cpp's
// ParallelBufferPoolManager, which routes the same way and keeps the same
// round-robin starting_index for allocation.
type ParallelBufferPool struct {
	shards  []*Instance
	nextNew atomic.Int64
}

// NewParallelBufferPool builds a ParallelBufferPool of len(sizes) shards,
// shard i sized sizes[i], each backed by its own DiskManager and the
// shared LogManager lm. newReplacer is invoked once per shard so each
// gets an independent Replacer of the requested policy.
func NewParallelBufferPool(sizes []int, dms []disk.Manager, lm wal.LogManager, newReplacer func(poolSize int) Replacer) *ParallelBufferPool {
	dberr.Assert(len(sizes) > 0, "must have at least one shard")
	dberr.Assert(len(sizes) == len(dms), "one DiskManager per shard")

	shards := make([]*Instance, len(sizes))
	for i, size := range sizes {
		shards[i] = NewInstance(size, len(sizes), i, dms[i], lm, newReplacer(size))
	}
	return &ParallelBufferPool{shards: shards}
}

// shardFor returns the shard that owns id, by residue class.
func (p *ParallelBufferPool) shardFor(id page.ID) *Instance {
	n := int64(len(p.shards))
	idx := int64(id) % n
	if idx < 0 {
		idx += n
	}
	return p.shards[idx]
}

// Fetch routes to the shard that owns id and pins it there.
func (p *ParallelBufferPool) Fetch(id page.ID) (*Handle, error) {
	return p.shardFor(id).Fetch(id)
}

// New round-robins across shards looking for one that can provision a
// frame, starting each call one shard further on than the previous call
// started (whether or not that call succeeded), and returns
// dberr.ErrAllFramesPinned only if every shard's attempt fails.
func (p *ParallelBufferPool) New() (*Handle, page.ID, error) {
	n := len(p.shards)
	start := int(p.nextNew.Add(1)-1) % n

	var lastErr error
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		h, id, err := p.shards[idx].New()
		if err == nil {
			return h, id, nil
		}
		lastErr = err
	}
	return nil, page.InvalidID, errors.Wrap(lastErr, "no shard could allocate a new page")
}

// Unpin routes to the shard that owns id.
func (p *ParallelBufferPool) Unpin(id page.ID, isDirty bool) bool {
	return p.shardFor(id).Unpin(id, isDirty)
}

// Flush routes to the shard that owns id.
func (p *ParallelBufferPool) Flush(id page.ID) (bool, error) {
	return p.shardFor(id).Flush(id)
}

// FlushAll flushes every shard, continuing past individual shard failures
// and returning their combined error.
func (p *ParallelBufferPool) FlushAll() error {
	errs := make([]error, 0, len(p.shards))
	for _, s := range p.shards {
		if err := s.FlushAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(stderrors.Join(errs...), "flushing one or more shards")
}

// Delete routes to the shard that owns id.
func (p *ParallelBufferPool) Delete(id page.ID) (bool, error) {
	return p.shardFor(id).Delete(id)
}

// NumShards reports how many Instances back this pool.
func (p *ParallelBufferPool) NumShards() int { return len(p.shards) }

// Shard returns the i'th underlying Instance, for diagnostics/tests.
func (p *ParallelBufferPool) Shard(i int) *Instance { return p.shards[i] }
