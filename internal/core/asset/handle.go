package asset

import (
	"fmt"
	"sync/atomic"
)

// Handle is a weak reference to a slot of a Storage. Copies made by plain
// assignment share the same reference; Clone takes a new one. The slot is
// freed by Storage.Maintain once every reference was released and loading
// finished.
type Handle[A any] struct {
	id   uint64
	refs *atomic.Int64
}

func newHandle[A any](id uint64) Handle[A] {
	refs := new(atomic.Int64)
	refs.Store(1)
	return Handle[A]{id: id, refs: refs}
}

// ID identifies the slot. Handles to the same asset compare equal.
func (h Handle[A]) ID() uint64 { return h.id }

// IsZero reports whether h was never returned by a Storage or Loader.
func (h Handle[A]) IsZero() bool { return h.refs == nil }

// Clone returns a new reference to the same asset.
func (h Handle[A]) Clone() Handle[A] {
	if h.refs != nil {
		h.refs.Add(1)
	}
	return h
}

// Release drops this reference. Call it once per handle obtained from Load,
// Insert or Clone.
func (h Handle[A]) Release() {
	if h.refs != nil {
		h.refs.Add(-1)
	}
}

// Refs returns the number of live references.
func (h Handle[A]) Refs() int64 {
	if h.refs == nil {
		return 0
	}
	return h.refs.Load()
}

func (h Handle[A]) String() string {
	return fmt.Sprintf("handle(%d)", h.id)
}
