package buffer

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Litinum/dbbufferpool/internal/dberr"
	"github.com/Litinum/dbbufferpool/internal/storage/page"
	"github.com/Litinum/dbbufferpool/internal/wal"
)

// fakeDiskManager is an in-memory disk.Manager stand-in, grounded on the
// teacher's test helpers in internal/storage/buffer/pool_test.go (which
// faked the disk layer the same way rather than touching a real file for
// every unit test).
type fakeDiskManager struct {
	mu         sync.Mutex
	pages      map[page.ID]*page.Page
	nextID     int64
	failReads  map[page.ID]bool
	failWrites map[page.ID]bool
}

func newFakeDiskManager() *fakeDiskManager {
	return &fakeDiskManager{
		pages:      make(map[page.ID]*page.Page),
		failReads:  make(map[page.ID]bool),
		failWrites: make(map[page.ID]bool),
	}
}

func (d *fakeDiskManager) ReadPage(id page.ID) (*page.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failReads[id] {
		return nil, errors.Errorf("simulated read failure for page %d", id)
	}
	p, ok := d.pages[id]
	if !ok {
		return page.New(id), nil
	}
	cp := *p
	return &cp, nil
}

func (d *fakeDiskManager) WritePage(p *page.Page) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrites[p.Header.ID] {
		return errors.Errorf("simulated write failure for page %d", p.Header.ID)
	}
	cp := *p
	d.pages[p.Header.ID] = &cp
	return nil
}

func (d *fakeDiskManager) AllocatePage() page.ID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	return page.ID(id)
}

func (d *fakeDiskManager) DeallocatePage(page.ID) error { return nil }
func (d *fakeDiskManager) Close() error                 { return nil }

func newTestInstance(t *testing.T, poolSize int) (*Instance, *fakeDiskManager) {
	t.Helper()
	dm := newFakeDiskManager()
	inst := NewInstance(poolSize, 1, 0, dm, wal.NoOpLogManager{}, NewLRUReplacer(poolSize))
	return inst, dm
}

func TestInstance_FetchMissLoadsFromDisk(t *testing.T) {
	inst, dm := newTestInstance(t, 2)
	p := page.NewTestPage(5, []byte("hello"))
	require.NoError(t, dm.WritePage(p))

	h, err := inst.Fetch(5)
	require.NoError(t, err)
	assert.Equal(t, page.ID(5), h.PageID())
	assert.True(t, h.Unpin(false))
}

func TestInstance_FetchHitReturnsSameFrame(t *testing.T) {
	inst, _ := newTestInstance(t, 2)
	h1, err := inst.Fetch(1)
	require.NoError(t, err)

	h2, err := inst.Fetch(1)
	require.NoError(t, err)

	assert.Equal(t, h1.frameIdx, h2.frameIdx)
	assert.Equal(t, 2, inst.PinCount(1))

	h1.Unpin(false)
	h2.Unpin(false)
}

func TestInstance_EvictsCleanPageWhenPoolFull(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	h1, err := inst.Fetch(1)
	require.NoError(t, err)
	h1.Unpin(false)

	h2, err := inst.Fetch(2)
	require.NoError(t, err)
	assert.Equal(t, page.ID(2), h2.PageID())
	assert.Equal(t, 0, inst.PinCount(1))
}

func TestInstance_AllFramesPinnedFailsFetch(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	_, err := inst.Fetch(1)
	require.NoError(t, err)

	_, err = inst.Fetch(2)
	assert.ErrorIs(t, err, dberr.ErrAllFramesPinned)
}

func TestInstance_DirtyVictimIsWrittenBackBeforeEviction(t *testing.T) {
	inst, dm := newTestInstance(t, 1)
	h1, err := inst.Fetch(1)
	require.NoError(t, err)
	h1.Lock()
	copy(h1.Data(), []byte("dirty contents"))
	h1.Unlock()
	h1.Unpin(true)

	_, err = inst.Fetch(2)
	require.NoError(t, err)

	written, err := dm.ReadPage(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("dirty contents"), written.Data[:len("dirty contents")])
}

func TestInstance_DeleteOfPinnedPageFails(t *testing.T) {
	inst, _ := newTestInstance(t, 2)
	_, err := inst.Fetch(1)
	require.NoError(t, err)

	ok, err := inst.Delete(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstance_DeleteOfAbsentPageIsIdempotent(t *testing.T) {
	inst, _ := newTestInstance(t, 2)
	ok, err := inst.Delete(99)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstance_DeleteFreesFrameForReuse(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	h, err := inst.Fetch(1)
	require.NoError(t, err)
	h.Unpin(false)

	ok, err := inst.Delete(1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = inst.Fetch(2)
	assert.NoError(t, err)
}

func TestInstance_DoubleUnpinPanics(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	h, err := inst.Fetch(1)
	require.NoError(t, err)
	h.Unpin(false)

	assert.Panics(t, func() { h.Unpin(false) })
}

func TestInstance_UnpinAbsentPageReturnsFalse(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	assert.False(t, inst.Unpin(123, false))
}

func TestInstance_FlushWritesDirtyPageAndClearsFlag(t *testing.T) {
	inst, dm := newTestInstance(t, 1)
	h, err := inst.Fetch(1)
	require.NoError(t, err)
	h.Lock()
	copy(h.Data(), []byte("flush me"))
	h.Unlock()
	h.Unpin(true)

	ok, err := inst.Flush(1)
	require.NoError(t, err)
	assert.True(t, ok)

	frameIdx, resident := inst.pageTable.Load(1)
	require.True(t, resident)
	assert.False(t, inst.frames[frameIdx].dirty)

	got, err := dm.ReadPage(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("flush me"), got.Data[:len("flush me")])
}

func TestInstance_FlushAbsentPageReturnsFalse(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	ok, err := inst.Flush(55)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstance_FlushAllFlushesEveryDirtyFrame(t *testing.T) {
	inst, dm := newTestInstance(t, 3)
	for i := page.ID(0); i < 3; i++ {
		h, err := inst.Fetch(i)
		require.NoError(t, err)
		h.Unpin(true)
	}

	require.NoError(t, inst.FlushAll())

	for i := page.ID(0); i < 3; i++ {
		_, err := dm.ReadPage(i)
		assert.NoError(t, err)
		_, written := dm.pages[i]
		assert.True(t, written)
	}
}

func TestInstance_NewAllocatesInResidueClass(t *testing.T) {
	inst := NewInstance(2, 3, 1, newFakeDiskManager(), wal.NoOpLogManager{}, NewLRUReplacer(2))
	_, id1, err := inst.New()
	require.NoError(t, err)
	_, id2, err := inst.New()
	require.NoError(t, err)

	assert.Equal(t, page.ID(1), id1)
	assert.Equal(t, page.ID(4), id2)
}

func TestInstance_FetchIOErrorAbortsProvision(t *testing.T) {
	inst, dm := newTestInstance(t, 1)
	dm.failReads[1] = true

	_, err := inst.Fetch(1)
	assert.Error(t, err)
	assert.Equal(t, 0, inst.PinCount(1))

	// The failed provision must have returned the frame to the free list,
	// so a subsequent fetch for a different page still succeeds.
	dm.failReads[1] = false
	_, err = inst.Fetch(2)
	assert.NoError(t, err)
}

func TestInstance_WALForcedBeforeDirtyWriteBack(t *testing.T) {
	inst, _ := newTestInstance(t, 1)
	lm := wal.NewInMemoryLogManager()
	inst.lm = lm

	h, err := inst.Fetch(1)
	require.NoError(t, err)
	h.pool.frames[h.frameIdx].lsn = 42
	h.Unpin(true)

	_, err = inst.Fetch(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), lm.LastFlushed())
}
