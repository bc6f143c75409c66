//go:build !windows

package disk

import (
	"syscall"

	"github.com/pkg/errors"

	"github.com/Litinum/dbbufferpool/internal/dberr"
)

// mmap maps size bytes of fm.file into memory, growing the underlying
// file first if needed. POSIX counterpart to the teacher's Windows-only
// mmap in manager_windows.go (the teacher's repo had no non-Windows path
// at all).
func mmap(fm *FileManager, size int64) error {
	if fm.file == nil {
		return dberr.ErrManagerClosed
	}
	if size <= 0 {
		return dberr.ErrInvalidInitialSize
	}
	if size > MaxMapSize {
		return dberr.ErrMaxMapSizeExceeded
	}

	if err := fm.file.Truncate(size); err != nil {
		return errors.Wrapf(err, "truncate to %d", size)
	}

	data, err := syscall.Mmap(int(fm.file.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "mmap")
	}

	fm.data = data
	fm.size = size
	return nil
}

// munmap unmaps fm's current mapping, if any.
func munmap(fm *FileManager) error {
	if fm.file == nil {
		return dberr.ErrManagerClosed
	}
	if fm.data == nil {
		return nil
	}

	err := syscall.Munmap(fm.data)
	fm.data = nil
	fm.size = 0
	if err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}
