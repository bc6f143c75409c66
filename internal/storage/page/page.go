// Package page defines the fixed-size disk page and its on-disk header.
//
// A Page is the unit the DiskManager moves between the file and a frame's
// data buffer. The buffer pool keeps its own authoritative pin-count and
// dirty-bit bookkeeping in the frame metadata it owns (see
// internal/storage/buffer) — the Flags bits carried in Header are
// written for on-disk introspection/debuggability only and are never
// consulted by the pool as a source of truth.
package page

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"

	"github.com/Litinum/dbbufferpool/internal/dberr"
)

// Size is the fixed page size. All on-disk pages and in-memory frames are
// exactly this many bytes.
const Size = 4096

// HeaderSize is the size in bytes of Header once packed: ID(8) +
// Checksum(4) + Flags(2) + padding(2) + LSN(8).
const HeaderSize = 24

// DataSize is the number of payload bytes available after the header.
const DataSize = Size - HeaderSize

// ID identifies a page on disk. InvalidID is the sentinel meaning "no
// page" — it is never a value AllocatePage returns.
type ID int64

// InvalidID is the sentinel page id meaning "frame holds no page".
const InvalidID ID = -1

// Header flag bits, tooling-only (see package doc).
const (
	FlagDirty  uint16 = 1 << 0
	FlagPinned uint16 = 1 << 1
)

// Header is the packed metadata stored in the first HeaderSize bytes of a
// page on disk.
type Header struct {
	ID       ID
	Checksum uint32
	Flags    uint16
	_        uint16 // padding, keeps LSN 8-byte aligned
	LSN      uint64
}

// Page is the fixed-size block read from and written to disk.
type Page struct {
	Header Header
	Data   [DataSize]byte
}

// New returns a zeroed page stamped with id.
func New(id ID) *Page {
	return &Page{Header: Header{ID: id}}
}

// Serialize packs the page into a freshly-allocated Size-byte slice,
// computing the payload checksum.
func (p *Page) Serialize() []byte {
	buf := make([]byte, Size)
	p.Header.Checksum = crc32.ChecksumIEEE(p.Data[:])
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Header.ID))
	binary.LittleEndian.PutUint32(buf[8:12], p.Header.Checksum)
	binary.LittleEndian.PutUint16(buf[12:14], p.Header.Flags)
	binary.LittleEndian.PutUint64(buf[16:24], p.Header.LSN)
	copy(buf[HeaderSize:], p.Data[:])
	return buf
}

// Deserialize unpacks a Size-byte slice into a Page, validating the
// payload checksum.
func Deserialize(data []byte) (*Page, error) {
	if len(data) != Size {
		return nil, errors.Wrapf(dberr.ErrInvalidInitialSize, "deserialize: got %d bytes, want %d", len(data), Size)
	}

	p := &Page{}
	p.Header.ID = ID(binary.LittleEndian.Uint64(data[0:8]))
	p.Header.Checksum = binary.LittleEndian.Uint32(data[8:12])
	p.Header.Flags = binary.LittleEndian.Uint16(data[12:14])
	p.Header.LSN = binary.LittleEndian.Uint64(data[16:24])
	copy(p.Data[:], data[HeaderSize:])

	if got := crc32.ChecksumIEEE(p.Data[:]); got != p.Header.Checksum {
		return nil, errors.Wrapf(dberr.ErrChecksumMismatch, "page %d: got %x want %x", p.Header.ID, got, p.Header.Checksum)
	}

	return p, nil
}

// IsDirty reports the tooling-only dirty flag persisted in the header.
func (h *Header) IsDirty() bool { return h.Flags&FlagDirty != 0 }

// SetDirtyFlag sets the tooling-only dirty flag.
func (h *Header) SetDirtyFlag() { h.Flags |= FlagDirty }

// ClearDirtyFlag clears the tooling-only dirty flag.
func (h *Header) ClearDirtyFlag() { h.Flags &^= FlagDirty }

// IsPinned reports the tooling-only pinned flag persisted in the header.
func (h *Header) IsPinned() bool { return h.Flags&FlagPinned != 0 }

// SetPinnedFlag sets the tooling-only pinned flag.
func (h *Header) SetPinnedFlag() { h.Flags |= FlagPinned }

// ClearPinnedFlag clears the tooling-only pinned flag.
func (h *Header) ClearPinnedFlag() { h.Flags &^= FlagPinned }
