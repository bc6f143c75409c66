//go:build windows

package disk

import (
	"syscall"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/Litinum/dbbufferpool/internal/dberr"
)

// Adapted from the teacher's internal/storage/file/db_windows.go, itself
// based on https://github.com/etcd-io/bbolt/blob/main/bolt_windows.go.

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

	sizehi := uint32(size >> 32)
	sizelo := uint32(size)
	h, err := syscall.CreateFileMapping(syscall.Handle(fm.file.Fd()), nil, syscall.PAGE_READWRITE, sizehi, sizelo, nil)
	if err != nil {
		return errors.Wrap(err, "create file mapping")
	}

	ptr, err := syscall.MapViewOfFile(h, syscall.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		if cerr := syscall.CloseHandle(h); cerr != nil {
			return errors.Wrap(cerr, "close handle after failed map view")
		}
		return errors.Wrap(err, "map view of file")
	}

	fm.data = (*[MaxMapSize]byte)(unsafe.Pointer(ptr))[:size:size]
	fm.size = size
	fm.mapHandle = uintptr(h)
	return nil
}

func munmap(fm *FileManager) error {
	if fm.file == nil {
		return dberr.ErrManagerClosed
	}
	if fm.data == nil {
		return nil
	}

	addr := uintptr(unsafe.Pointer(&fm.data[0]))
	var err error
	if e := syscall.UnmapViewOfFile(addr); e != nil {
		err = errors.Wrap(e, "unmap view of file")
	}
	if fm.mapHandle != 0 {
		if e := syscall.CloseHandle(syscall.Handle(fm.mapHandle)); e != nil {
			err = errors.Wrap(e, "close mapping handle")
		}
		fm.mapHandle = 0
	}

	fm.data = nil
	fm.size = 0
	return err
}
