package ecs

import "errors"

var (
	// ErrInvalidEntity is returned when acting on a deleted or
	// generation-mismatched entity.
	ErrInvalidEntity    = errors.New("invalid entity")
	ErrStorageConflict  = errors.New("component already registered with a different storage")
	ErrUnknownStrategy  = errors.New("unknown storage strategy")
	ErrResourceNotFound = errors.New("resource not found")
)
