package ecs

import (
	"fmt"
	"reflect"
)

// Register creates the storage for T with an explicit strategy. Registering
// again with the same strategy is a no-op.
func Register[T any](w *World, strategy Strategy) error {
	t := reflect.TypeFor[T]()
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.storages[t]; ok {
		if s.Strategy() != strategy {
			return fmt.Errorf("%w: %s is %s, requested %s", ErrStorageConflict, t, s.Strategy(), strategy)
		}
		return nil
	}
	s, err := NewStorage[T](strategy, w.shards)
	if err != nil {
		return err
	}
	w.storages[t] = s
	return nil
}

// StorageFor returns T's storage, registering it on first use.
func StorageFor[T any](w *World) Storage[T] {
	if s, ok := lookup[T](w); ok {
		return s
	}
	t := reflect.TypeFor[T]()
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.storages[t]; ok {
		return s.(Storage[T])
	}
	strategy := w.strategy
	var zero T
	if hint, ok := any(zero).(StorageHint); ok {
		strategy = hint.StorageStrategy()
	} else if hint, ok := any(&zero).(StorageHint); ok {
		strategy = hint.StorageStrategy()
	}
	s, err := NewStorage[T](strategy, w.shards)
	if err != nil {
		s = NewSparseStorage[T]()
	}
	w.storages[t] = s
	return s
}

func lookup[T any](w *World) (Storage[T], bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.storages[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return s.(Storage[T]), true
}

// Insert attaches v to e, returning the replaced value if there was one.
func Insert[T any](w *World, e Entity, v T) (prev T, replaced bool, err error) {
	if !w.entities.IsAlive(e) {
		return prev, false, fmt.Errorf("%w: %s", ErrInvalidEntity, e)
	}
	prev, replaced = StorageFor[T](w).Insert(e.Index, v)
	return prev, replaced, nil
}

// Get returns a pointer to e's T. Missing components and stale entities both
// report false.
func Get[T any](w *World, e Entity) (*T, bool) {
	if !w.entities.IsAlive(e) {
		return nil, false
	}
	s, ok := lookup[T](w)
	if !ok {
		return nil, false
	}
	return s.Get(e.Index)
}

// Has reports whether e is alive and carries a T.
func Has[T any](w *World, e Entity) bool {
	_, ok := Get[T](w, e)
	return ok
}

// Remove detaches e's T.
func Remove[T any](w *World, e Entity) (T, bool) {
	var zero T
	if !w.entities.IsAlive(e) {
		return zero, false
	}
	s, ok := lookup[T](w)
	if !ok {
		return zero, false
	}
	return s.Remove(e.Index)
}

// View is a typed handle over one component storage that only yields live
// entities.
type View[T any] struct {
	w       *World
	storage Storage[T]
}

// Components returns the view for T.
func Components[T any](w *World) *View[T] {
	return &View[T]{w: w, storage: StorageFor[T](w)}
}

// Each visits every live entity carrying a T until fn returns false. fn must
// not insert or remove T on other entities while iterating.
func (v *View[T]) Each(fn func(e Entity, c *T) bool) {
	v.storage.Each(func(index uint32, c *T) bool {
		e, ok := v.w.entities.Current(index)
		if !ok {
			return true
		}
		return fn(e, c)
	})
}

// Entities collects the live entities carrying a T.
func (v *View[T]) Entities() []Entity {
	out := make([]Entity, 0, v.storage.Len())
	v.Each(func(e Entity, _ *T) bool {
		out = append(out, e)
		return true
	})
	return out
}

func (v *View[T]) Get(e Entity) (*T, bool) {
	if !v.w.entities.IsAlive(e) {
		return nil, false
	}
	return v.storage.Get(e.Index)
}

// Len counts stored components, including those of deleted entities that
// have not been maintained yet.
func (v *View[T]) Len() int { return v.storage.Len() }

// Join2 visits live entities carrying both A and B, walking whichever
// storage is smaller.
func Join2[A, B any](w *World, fn func(e Entity, a *A, b *B) bool) {
	as := StorageFor[A](w)
	bs := StorageFor[B](w)
	if as.Len() <= bs.Len() {
		Components[A](w).Each(func(e Entity, a *A) bool {
			b, ok := bs.Get(e.Index)
			if !ok {
				return true
			}
			return fn(e, a, b)
		})
		return
	}
	Components[B](w).Each(func(e Entity, b *B) bool {
		a, ok := as.Get(e.Index)
		if !ok {
			return true
		}
		return fn(e, a, b)
	})
}
