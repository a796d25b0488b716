package ecs

import "fmt"

// Strategy selects the container backing a component type.
type Strategy uint8

const (
	// Sparse packs components densely and maps entity indices through a
	// sparse lookup table. Good default for most components.
	Sparse Strategy = iota
	// Dense addresses a slice directly by entity index. Best for components
	// nearly every entity carries.
	Dense
	// Hash keeps components in xxhash-sharded maps. Best for rare
	// components on large worlds.
	Hash
)

func (s Strategy) String() string {
	switch s {
	case Sparse:
		return "sparse"
	case Dense:
		return "dense"
	case Hash:
		return "hash"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy maps a config string onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "sparse", "":
		return Sparse, nil
	case "dense":
		return Dense, nil
	case "hash":
		return Hash, nil
	default:
		return Sparse, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// StorageHint lets a component type pick its own strategy when it is
// registered implicitly by the first Insert.
type StorageHint interface {
	StorageStrategy() Strategy
}

// Releaser is implemented by components that hold a counted reference,
// such as asset handles. Maintain releases them together with their
// deleted entity. Values handed back by Insert or Remove stay owned by the
// caller and are not released.
type Releaser interface {
	Release()
}

func release[T any](v T) {
	if r, ok := any(v).(Releaser); ok {
		r.Release()
	}
}

// componentStorage is the type-erased view the World uses for cleanup.
type componentStorage interface {
	Strategy() Strategy
	Len() int
	// Delete removes the component at index and releases it.
	Delete(index uint32) bool
}

// Storage holds at most one T per entity index. Storages do no liveness
// checks; the World validates entities before touching them. Pointers
// returned by Get stay valid until the next Insert or Remove on the same
// storage.
type Storage[T any] interface {
	componentStorage

	Insert(index uint32, v T) (prev T, replaced bool)
	Get(index uint32) (*T, bool)
	Remove(index uint32) (T, bool)
	Has(index uint32) bool
	// Each visits every stored component until fn returns false.
	Each(fn func(index uint32, v *T) bool)
}

// NewStorage builds an empty storage for strategy. shards only applies to
// Hash storages.
func NewStorage[T any](strategy Strategy, shards int) (Storage[T], error) {
	switch strategy {
	case Sparse:
		return NewSparseStorage[T](), nil
	case Dense:
		return NewDenseStorage[T](), nil
	case Hash:
		return NewHashStorage[T](shards), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, strategy)
	}
}
