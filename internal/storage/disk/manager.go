// Package disk is the DiskManager collaborator described in spec.md §6:
// synchronous, page-granularity reads/writes against a backing file, plus
// identifier-only page allocation. It owns no buffer-pool state — it
// knows nothing about pinning, dirtiness, or replacement policy.
//
// Grounded on the teacher's internal/storage/file.FileManager, which
// memory-maps the backing file rather than doing positioned read/write
// syscalls per page. The teacher shipped only the Windows half of that
// mapping (db_windows.go, behind a `windows` build tag) with no POSIX
// counterpart, so file.go would not build outside Windows; manager_unix.go
// adds the missing half using the standard syscall.Mmap/Munmap pair.
package disk

import (
	"os"

	"github.com/pkg/errors"

	"github.com/Litinum/dbbufferpool/internal/dberr"
	"github.com/Litinum/dbbufferpool/internal/storage/page"
)

// MaxMapSize caps how large the backing file's memory mapping is allowed
// to grow, mirroring the teacher's util.MAX_MAP_SIZE guard.
const MaxMapSize = 1 << 34 // 16GiB

// Manager is the interface the buffer pool depends on. Implementations
// must be safe for concurrent ReadPage/WritePage calls on distinct page
// ids (spec.md §5's shared-resource policy); the buffer pool itself
// guarantees it never issues two concurrent writes for the same frame.
type Manager interface {
	ReadPage(id page.ID) (*page.Page, error)
	WritePage(p *page.Page) error
	AllocatePage() page.ID
	DeallocatePage(id page.ID) error
	Close() error
}

// FileManager is the mmap-backed Manager implementation.
type FileManager struct {
	file *os.File
	data []byte
	size int64
	sync bool

	// mapHandle is platform-specific mapping state: unused on POSIX
	// (munmap only needs data/size), holds the Windows mapping handle
	// on that platform.
	mapHandle uintptr

	nextPageID int64
}

// NewFileManager opens (creating if necessary) path and maps the first
// initialPages worth of page.Size bytes into memory.
func NewFileManager(path string, initialPages int, syncWrites bool) (*FileManager, error) {
	if initialPages <= 0 {
		return nil, dberr.ErrInvalidInitialSize
	}

	initialSize := int64(initialPages) * int64(page.Size)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, errors.Wrap(err, "open backing file")
	}

	fm := &FileManager{file: f, sync: syncWrites}

	if err := mmap(fm, initialSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "map backing file")
	}

	return fm, nil
}

// ReadPage fills and returns a page parsed from the on-disk slot for id.
func (fm *FileManager) ReadPage(id page.ID) (*page.Page, error) {
	offset := int64(id) * int64(page.Size)
	if offset < 0 || offset+page.Size > fm.size {
		return nil, dberr.ErrPageOutOfBounds
	}

	p, err := page.Deserialize(fm.data[offset : offset+page.Size])
	if err != nil {
		return nil, errors.Wrapf(err, "read page %d", id)
	}
	return p, nil
}

// WritePage persists p to its on-disk slot, growing the mapping first if
// necessary.
func (fm *FileManager) WritePage(p *page.Page) error {
	offset := int64(p.Header.ID) * int64(page.Size)
	if offset+int64(page.Size) > fm.size {
		newSize := max(fm.size*2, offset+int64(page.Size))
		if newSize > MaxMapSize {
			return dberr.ErrMaxMapSizeExceeded
		}

		if err := munmap(fm); err != nil {
			return errors.Wrap(err, "unmap before growth")
		}
		if err := mmap(fm, newSize); err != nil {
			return errors.Wrap(err, "map after growth")
		}
	}

	copy(fm.data[offset:], p.Serialize())

	if fm.sync {
		if err := fm.file.Sync(); err != nil {
			return errors.Wrap(err, "sync after write")
		}
	}
	return nil
}

// AllocatePage hands out the next never-before-used page id. Identifier
// only — no buffer contents are touched, matching spec.md §6.
func (fm *FileManager) AllocatePage() page.ID {
	id := fm.nextPageID
	fm.nextPageID++
	return page.ID(id)
}

// DeallocatePage is identifier-level bookkeeping only; this implementation
// has nothing further to reclaim on delete (no free-space map), matching
// the teacher's no-op behavior in BufferPool.Delete.
func (fm *FileManager) DeallocatePage(page.ID) error { return nil }

// Close unmaps and closes the backing file.
func (fm *FileManager) Close() error {
	if fm == nil || fm.file == nil {
		return nil
	}
	if err := munmap(fm); err != nil {
		return errors.Wrap(err, "unmap on close")
	}

	var err error
	if e := fm.file.Sync(); e != nil {
		err = errors.Wrap(e, "sync on close")
	}
	if e := fm.file.Close(); e != nil {
		err = errors.Wrap(e, "close file")
	}
	fm.file = nil
	return err
}
