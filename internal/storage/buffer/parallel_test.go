package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Litinum/dbbufferpool/internal/storage/disk"
	"github.com/Litinum/dbbufferpool/internal/storage/page"
	"github.com/Litinum/dbbufferpool/internal/wal"
)

func newTestParallelPool(t *testing.T, sizes []int) *ParallelBufferPool {
	t.Helper()
	dms := make([]disk.Manager, len(sizes))
	for i := range dms {
		dms[i] = newFakeDiskManager()
	}
	return NewParallelBufferPool(sizes, dms, wal.NoOpLogManager{}, func(poolSize int) Replacer {
		return NewLRUReplacer(poolSize)
	})
}

func TestParallelBufferPool_RoutesByResidueClass(t *testing.T) {
	p := newTestParallelPool(t, []int{2, 2, 2})

	for id := page.ID(0); id < 6; id++ {
		h, err := p.Fetch(id)
		require.NoError(t, err)
		assert.Equal(t, int(id)%3, shardIndexOf(t, p, h))
		h.Unpin(false)
	}
}

func shardIndexOf(t *testing.T, p *ParallelBufferPool, h *Handle) int {
	t.Helper()
	for i := 0; i < p.NumShards(); i++ {
		if p.Shard(i) == h.pool {
			return i
		}
	}
	t.Fatal("handle does not belong to any shard")
	return -1
}

func TestParallelBufferPool_NewRoundRobinsAcrossShards(t *testing.T) {
	p := newTestParallelPool(t, []int{4, 4})

	_, id1, err := p.New()
	require.NoError(t, err)
	_, id2, err := p.New()
	require.NoError(t, err)

	assert.NotEqual(t, int64(id1)%2, int64(id2)%2)
}

func TestParallelBufferPool_UnevenShardSizesSumToPoolSize(t *testing.T) {
	p := newTestParallelPool(t, []int{3, 3, 2})
	total := 0
	for i := 0; i < p.NumShards(); i++ {
		total += p.Shard(i).PoolSize()
	}
	assert.Equal(t, 8, total)
}

func TestParallelBufferPool_DeleteRoutesToOwningShard(t *testing.T) {
	p := newTestParallelPool(t, []int{2, 2})
	h, err := p.Fetch(3)
	require.NoError(t, err)
	h.Unpin(false)

	ok, err := p.Delete(3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParallelBufferPool_FlushAllAggregatesShardErrors(t *testing.T) {
	p := newTestParallelPool(t, []int{1, 1})
	h, err := p.Fetch(0)
	require.NoError(t, err)
	h.Unpin(true)

	assert.NoError(t, p.FlushAll())

	// With a write failure injected on each shard, both failures surface
	// in the combined error.
	for i := 0; i < p.NumShards(); i++ {
		id := page.ID(i)
		h, err := p.Fetch(id)
		require.NoError(t, err)
		h.Unpin(true)
		p.Shard(i).dm.(*fakeDiskManager).failWrites[id] = true
	}

	err = p.FlushAll()
	assert.ErrorContains(t, err, "flush page 0")
	assert.ErrorContains(t, err, "flush page 1")
}
