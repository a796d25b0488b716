package ecs

import (
	"fmt"
	"reflect"
)

// Resources are boxed as *T so systems holding write access can mutate them
// in place through the pointer returned by Resource.

// InsertResource stores v as the single T of the world, returning the value
// it replaced.
func InsertResource[T any](w *World, v T) (prev T, replaced bool) {
	t := reflect.TypeFor[T]()
	w.mu.Lock()
	defer w.mu.Unlock()
	if old, ok := w.resources[t]; ok {
		prev, replaced = *old.(*T), true
	}
	w.resources[t] = &v
	return prev, replaced
}

// Resource returns a pointer to the stored T.
func Resource[T any](w *World) (*T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

// Fetch returns a copy of the stored T. Convenient for pointer-typed
// resources such as asset storages.
func Fetch[T any](w *World) (T, bool) {
	r, ok := Resource[T](w)
	if !ok {
		var zero T
		return zero, false
	}
	return *r, true
}

// MustResource panics when T was never inserted. Systems use it for
// resources their setup guarantees.
func MustResource[T any](w *World) *T {
	r, ok := Resource[T](w)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrResourceNotFound, reflect.TypeFor[T]()))
	}
	return r
}

func HasResource[T any](w *World) bool {
	_, ok := Resource[T](w)
	return ok
}

// RemoveResource deletes the stored T and returns it.
func RemoveResource[T any](w *World) (T, bool) {
	t := reflect.TypeFor[T]()
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.resources[t]
	if !ok {
		var zero T
		return zero, false
	}
	delete(w.resources, t)
	return *r.(*T), true
}
