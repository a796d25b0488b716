package prefab

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidParent    = errors.New("invalid parent index")
	ErrMultipleVariants = errors.New("more than one oneof variant set")
	ErrInvalidOneOf     = errors.New("oneof variants must be pointer types implementing Data")
	ErrEmptyPrefab      = errors.New("empty prefab document")
	ErrSubAssetFailed   = errors.New("sub-asset loading failed")
	ErrNotInstantiable  = errors.New("prefab asset unavailable")
	ErrRecursiveData    = errors.New("recursive prefab data type")
)

// ConflictError reports two data fields of one prefab type that would both
// write the same component to an entity.
type ConflictError struct {
	Type      reflect.Type
	First     string
	Second    string
	Component reflect.Type
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("prefab %s: fields %s and %s both write %s", e.Type, e.First, e.Second, e.Component)
}

func (e *ConflictError) prefixed(outer reflect.Type, field string) *ConflictError {
	return &ConflictError{
		Type:      outer,
		First:     field + "." + e.First,
		Second:    field + "." + e.Second,
		Component: e.Component,
	}
}
