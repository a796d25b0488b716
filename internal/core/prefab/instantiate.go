package prefab

import (
	"context"
	"fmt"

	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/events/bus"
	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/internal/core/system"
)

// Instance is attached to a main entity once its prefab was handled.
// Entities lists the whole instance, main entity first. Err is set when
// loading or instantiation failed; no entities are spawned then.
type Instance[T Data] struct {
	Entities []ecs.Entity
	Err      error
}

// InstanceEvent is the payload of bus.PrefabInstantiated and
// bus.PrefabFailed.
type InstanceEvent struct {
	Main     ecs.Entity
	Entities []ecs.Entity
	Err      error
}

// Instantiator spawns prefabs of data type T. Every frame it looks for main
// entities carrying a Handle[T] but no Instance[T] whose prefab finished
// loading, and builds their instances. One failing prefab never affects the
// others handled in the same frame.
type Instantiator[T Data] struct {
	access system.Access
}

// NewInstantiator validates T and returns the system.
func NewInstantiator[T Data]() (*Instantiator[T], error) {
	if err := Validate[T](); err != nil {
		return nil, err
	}
	var zero T
	access := system.NewAccess(
		system.Read[*Storage[T]](),
		system.Read[Handle[T]](),
		system.Write[Instance[T]](),
		system.Write[ecs.Parent](),
	).Union(zero.Access())
	return &Instantiator[T]{access: access}, nil
}

func (s *Instantiator[T]) Access() system.Access { return s.access }

type pendingInstance[T Data] struct {
	main   ecs.Entity
	handle Handle[T]
}

func (s *Instantiator[T]) Run(_ context.Context, w *ecs.World) error {
	storage, ok := ecs.Fetch[*Storage[T]](w)
	if !ok {
		return asset.ErrMissingStorage
	}

	var todo []pendingInstance[T]
	ecs.Components[Handle[T]](w).Each(func(e ecs.Entity, h *Handle[T]) bool {
		if !ecs.Has[Instance[T]](w, e) {
			todo = append(todo, pendingInstance[T]{main: e, handle: *h})
		}
		return true
	})

	for _, job := range todo {
		switch storage.Status(job.handle) {
		case asset.StatusLoading:
			continue
		case asset.StatusLoaded:
			p, _ := storage.Get(job.handle)
			entities, err := Instantiate(w, job.main, p)
			s.record(w, job.main, entities, err)
		case asset.StatusFailed:
			s.record(w, job.main, nil, fmt.Errorf("%w: %w", ErrNotInstantiable, storage.Err(job.handle)))
		default:
			s.record(w, job.main, nil, fmt.Errorf("%w: %w", ErrNotInstantiable, asset.ErrUnknownHandle))
		}
	}
	return nil
}

func (s *Instantiator[T]) record(w *ecs.World, main ecs.Entity, entities []ecs.Entity, err error) {
	if _, _, insertErr := ecs.Insert(w, main, Instance[T]{Entities: entities, Err: err}); insertErr != nil {
		w.Logger().Warn("prefab main entity vanished", log.String("entity", main.String()), log.Error(insertErr))
		return
	}
	b := w.EventBus()
	if err != nil {
		w.Logger().Warn("prefab instantiation failed", log.String("entity", main.String()), log.Error(err))
		if b != nil {
			_ = b.Publish(bus.NewEvent(bus.PrefabFailed, "prefab", InstanceEvent{Main: main, Err: err}))
		}
		return
	}
	w.Logger().Debug("prefab instantiated", log.String("entity", main.String()), log.Int("entities", len(entities)))
	if b != nil {
		_ = b.Publish(bus.NewEvent(bus.PrefabInstantiated, "prefab", InstanceEvent{Main: main, Entities: entities}))
	}
}

// Instantiate builds p on main without checking for an existing instance.
// Entities spawned for entries 1..N are deleted again when any step fails;
// components already attached to main are left in place.
func Instantiate[T Data](w *ecs.World, main ecs.Entity, p *Prefab[T]) ([]ecs.Entity, error) {
	if !w.IsAlive(main) {
		return nil, fmt.Errorf("%w: %s", ecs.ErrInvalidEntity, main)
	}
	if err := ValidateParents(p); err != nil {
		return nil, err
	}

	entities := []ecs.Entity{main}
	if n := len(p.Entities); n > 1 {
		entities = append(entities, w.CreateEntities(n-1)...)
	}
	rollback := func() {
		for _, e := range entities[1:] {
			w.DeleteEntity(e)
		}
	}

	for i := 1; i < len(p.Entities); i++ {
		if parent := p.Entities[i].Parent; parent != nil {
			if _, _, err := ecs.Insert(w, entities[i], ecs.Parent{Entity: entities[*parent]}); err != nil {
				rollback()
				return nil, err
			}
		}
	}
	for i, entry := range p.Entities {
		if isNil(entry.Data) {
			continue
		}
		if err := entry.Data.AddToEntity(entities[i], w, entities); err != nil {
			rollback()
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return entities, nil
}

// ValidateParents checks that every parent index names an earlier entry.
// The main entry can have no parent. A nil prefab, as imported from an
// empty document, is ErrEmptyPrefab.
func ValidateParents[T Data](p *Prefab[T]) error {
	if p == nil {
		return ErrEmptyPrefab
	}
	for i, entry := range p.Entities {
		if entry.Parent == nil {
			continue
		}
		if parent := *entry.Parent; parent < 0 || parent >= i {
			return fmt.Errorf("%w: entry %d has parent %d", ErrInvalidParent, i, parent)
		}
	}
	return nil
}
