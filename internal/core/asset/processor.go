package asset

import (
	"context"
	"fmt"
	"reflect"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/system"
)

// Processor is the system that finishes loads for one storage. It writes
// the *Storage[A, D] resource, so systems reading that resource run after
// it in the same frame.
type Processor[A, D any] struct {
	storage *Storage[A, D]
}

// NewProcessor builds the system for storage. Setup inserts storage as a
// world resource unless one is already present.
func NewProcessor[A, D any](storage *Storage[A, D]) *Processor[A, D] {
	return &Processor[A, D]{storage: storage}
}

func (p *Processor[A, D]) Access() system.Access {
	return system.NewAccess(system.Write[*Storage[A, D]]())
}

func (p *Processor[A, D]) Setup(w *ecs.World) error {
	if existing, ok := ecs.Fetch[*Storage[A, D]](w); ok {
		p.storage = existing
		return nil
	}
	if p.storage == nil {
		return fmt.Errorf("%w: %s", ErrMissingStorage, reflect.TypeFor[*Storage[A, D]]())
	}
	ecs.InsertResource(w, p.storage)
	return nil
}

func (p *Processor[A, D]) Run(_ context.Context, w *ecs.World) error {
	s := p.storage
	if s == nil {
		var ok bool
		if s, ok = ecs.Fetch[*Storage[A, D]](w); !ok {
			return fmt.Errorf("%w: %s", ErrMissingStorage, reflect.TypeFor[*Storage[A, D]]())
		}
	}
	s.Process(w)
	s.Maintain()
	return nil
}
