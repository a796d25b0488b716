package ecs

import (
	"reflect"
	"sync"

	"github.com/zeusync/forge/internal/core/events/bus"
	"github.com/zeusync/forge/internal/core/observability/log"
)

// World owns entities, one storage per component type and one value per
// resource type. It is an explicit context: systems, prefabs and the
// application all receive it as a parameter.
//
// Storages themselves are not locked. Concurrent systems stay safe because
// the dispatcher never runs two systems whose declared accesses conflict.
type World struct {
	entities *Entities

	mu        sync.RWMutex
	storages  map[reflect.Type]componentStorage
	resources map[reflect.Type]any

	strategy Strategy
	shards   int
	logger   log.Log
	bus      bus.EventBus
}

type Option func(*World)

func WithLogger(l log.Log) Option {
	return func(w *World) { w.logger = l }
}

// WithEventBus makes Maintain publish bus.EntityDeleted events.
func WithEventBus(b bus.EventBus) Option {
	return func(w *World) { w.bus = b }
}

// WithDefaultStrategy sets the storage used for implicitly registered
// components that carry no StorageHint.
func WithDefaultStrategy(s Strategy) Option {
	return func(w *World) { w.strategy = s }
}

// WithHashShards sets the shard count for Hash storages.
func WithHashShards(n int) Option {
	return func(w *World) { w.shards = n }
}

func NewWorld(opts ...Option) *World {
	w := &World{
		entities:  newEntities(),
		storages:  make(map[reflect.Type]componentStorage),
		resources: make(map[reflect.Type]any),
		strategy:  Sparse,
		shards:    defaultHashShards,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.NewNop()
	}
	return w
}

// Entities exposes the entity arena.
func (w *World) Entities() *Entities { return w.entities }

// Logger returns the world's logger.
func (w *World) Logger() log.Log { return w.logger }

// EventBus returns the attached bus, or nil.
func (w *World) EventBus() bus.EventBus { return w.bus }

func (w *World) CreateEntity() Entity { return w.entities.Create() }

func (w *World) CreateEntities(n int) []Entity { return w.entities.CreateN(n) }

// DeleteEntity kills e immediately; its components are dropped by the next
// Maintain. Returns false for stale entities.
func (w *World) DeleteEntity(e Entity) bool { return w.entities.Delete(e) }

func (w *World) IsAlive(e Entity) bool { return w.entities.IsAlive(e) }

// Maintain removes the components of every entity deleted since the last
// call and frees their indices for reuse. It must not run concurrently with
// a dispatch. Returns the number of entities finalized.
func (w *World) Maintain() int {
	deleted := w.entities.takePending()
	if len(deleted) == 0 {
		return 0
	}

	w.mu.RLock()
	for _, s := range w.storages {
		for _, e := range deleted {
			s.Delete(e.Index)
		}
	}
	w.mu.RUnlock()

	w.entities.release(deleted)

	if w.bus != nil {
		for _, e := range deleted {
			if err := w.bus.Publish(bus.NewEvent(bus.EntityDeleted, "world", e)); err != nil {
				w.logger.Warn("entity deleted handler failed", log.String("entity", e.String()), log.Error(err))
			}
		}
	}
	w.logger.Debug("world maintained", log.Int("deleted", len(deleted)))
	return len(deleted)
}

// StorageStats reports the strategy and size of every registered storage,
// keyed by component type name.
func (w *World) StorageStats() map[string]StorageStat {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]StorageStat, len(w.storages))
	for t, s := range w.storages {
		out[t.String()] = StorageStat{Strategy: s.Strategy(), Len: s.Len()}
	}
	return out
}

type StorageStat struct {
	Strategy Strategy
	Len      int
}
