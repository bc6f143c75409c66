// Package wal defines the WAL-hook interface the buffer pool depends on
// (§5's "force log first" rule) plus two implementations useful outside
// a real recovery subsystem: a no-op and an in-memory stub that records
// what it was asked to flush, for tests that want to observe the
// ordering.
//
// The interface shape is grounded on
// other_examples/lintang-b-s-rtreed__interface.go's LogManagerI, which
// exposes the same Flush(lsn) contract.
package wal

import "sync"

// LogManager is the WAL hook the buffer pool calls before writing back a
// dirty page that carries a nonzero LSN: the log must be durable up to
// that LSN first. Real durability (an actual on-disk log, checkpointing,
// recovery) is out of scope for this module — see spec.md's Non-goals.
type LogManager interface {
	// Flush makes the log durable up to and including lsn. Buffer pool
	// callers treat a non-nil error exactly like a DiskManager I/O
	// error (§7): propagated, page left dirty.
	Flush(lsn uint64) error
}

// NoOpLogManager satisfies LogManager by doing nothing. Appropriate for
// callers that don't run a WAL at all (e.g. most tests).
type NoOpLogManager struct{}

// Flush implements LogManager.
func (NoOpLogManager) Flush(uint64) error { return nil }

// InMemoryLogManager records every LSN it was asked to flush, in order,
// so tests can assert the force-write-ahead ordering (SPEC_FULL §8
// scenario 8) without standing up real durability.
type InMemoryLogManager struct {
	mu     sync.Mutex
	Flushed []uint64
}

// NewInMemoryLogManager returns an empty InMemoryLogManager.
func NewInMemoryLogManager() *InMemoryLogManager {
	return &InMemoryLogManager{}
}

// Flush implements LogManager.
func (m *InMemoryLogManager) Flush(lsn uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushed = append(m.Flushed, lsn)
	return nil
}

// LastFlushed returns the most recently flushed LSN, or 0 if none.
func (m *InMemoryLogManager) LastFlushed() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Flushed) == 0 {
		return 0
	}
	return m.Flushed[len(m.Flushed)-1]
}
