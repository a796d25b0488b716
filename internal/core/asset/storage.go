package asset

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/events/bus"
	"github.com/zeusync/forge/internal/core/observability/log"
)

// Status is the lifecycle state of a storage slot.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Processed is the outcome of one ProcessFunc call: either a finished asset
// or data to retry on the next Process.
type Processed[A, D any] struct {
	asset A
	data  D
	ready bool
}

// Loaded wraps a finished asset.
func Loaded[A, D any](a A) Processed[A, D] {
	return Processed[A, D]{asset: a, ready: true}
}

// NotReady asks the storage to process d again next frame.
func NotReady[A, D any](d D) Processed[A, D] {
	return Processed[A, D]{data: d}
}

// ProcessFunc turns imported data into an asset on the thread that owns the
// world, typically inside a Processor system.
type ProcessFunc[A, D any] func(w *ecs.World, data D) (Processed[A, D], error)

// Passthrough stores imported data as the asset itself.
func Passthrough[A any]() ProcessFunc[A, A] {
	return func(_ *ecs.World, data A) (Processed[A, A], error) {
		return Loaded[A, A](data), nil
	}
}

// LoadEvent is the payload of bus.AssetLoaded and bus.AssetFailed.
type LoadEvent struct {
	Name   string
	Handle uint64
	Err    error
}

type slot[A any] struct {
	name   string
	value  A
	status Status
	err    error
	refs   *atomic.Int64
}

type queued[D any] struct {
	id      uint64
	name    string
	data    D
	tracker Tracker
}

// Storage owns every asset of type A. D is the imported data that a
// ProcessFunc turns into A. Loader workers feed it concurrently; Get and
// Status may be called from any goroutine.
type Storage[A, D any] struct {
	process ProcessFunc[A, D]

	mx     sync.RWMutex
	slots  map[uint64]*slot[A]
	nextID uint64

	qmx   sync.Mutex
	queue []queued[D]
}

func NewStorage[A, D any](process ProcessFunc[A, D]) *Storage[A, D] {
	return &Storage[A, D]{
		process: process,
		slots:   make(map[uint64]*slot[A]),
	}
}

// allocate reserves a loading slot and returns the first reference to it.
func (s *Storage[A, D]) allocate(name string) Handle[A] {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.nextID++
	h := newHandle[A](s.nextID)
	s.slots[h.id] = &slot[A]{name: name, status: StatusLoading, refs: h.refs}
	return h
}

// Insert stores an already built asset.
func (s *Storage[A, D]) Insert(a A) Handle[A] {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.nextID++
	h := newHandle[A](s.nextID)
	s.slots[h.id] = &slot[A]{value: a, status: StatusLoaded, refs: h.refs}
	return h
}

// Get returns the asset once processing finished. Loading and failed slots
// yield false, never a partial value.
func (s *Storage[A, D]) Get(h Handle[A]) (A, bool) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	sl, ok := s.slots[h.id]
	if !ok || sl.status != StatusLoaded {
		var zero A
		return zero, false
	}
	return sl.value, true
}

func (s *Storage[A, D]) Status(h Handle[A]) Status {
	s.mx.RLock()
	defer s.mx.RUnlock()
	if sl, ok := s.slots[h.id]; ok {
		return sl.status
	}
	return StatusUnknown
}

// Err returns why h failed, ErrStillLoading while it loads, or
// ErrUnknownHandle for freed and foreign handles.
func (s *Storage[A, D]) Err(h Handle[A]) error {
	s.mx.RLock()
	defer s.mx.RUnlock()
	sl, ok := s.slots[h.id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	switch sl.status {
	case StatusLoading:
		return ErrStillLoading
	case StatusFailed:
		return sl.err
	default:
		return nil
	}
}

// Name returns the source name h was loaded from.
func (s *Storage[A, D]) Name(h Handle[A]) string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	if sl, ok := s.slots[h.id]; ok {
		return sl.name
	}
	return ""
}

func (s *Storage[A, D]) Len() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.slots)
}

// Pending returns how many imported values wait for Process.
func (s *Storage[A, D]) Pending() int {
	s.qmx.Lock()
	defer s.qmx.Unlock()
	return len(s.queue)
}

func (s *Storage[A, D]) enqueue(id uint64, name string, data D, tracker Tracker) {
	s.qmx.Lock()
	s.queue = append(s.queue, queued[D]{id: id, name: name, data: data, tracker: tracker})
	s.qmx.Unlock()
}

func (s *Storage[A, D]) fail(id uint64, name string, err error, tracker Tracker, b bus.EventBus) {
	s.mx.Lock()
	if sl, ok := s.slots[id]; ok {
		sl.status = StatusFailed
		sl.err = err
	}
	s.mx.Unlock()
	tracker.Fail(name, err)
	if b != nil {
		_ = b.Publish(bus.NewEvent(bus.AssetFailed, "asset", LoadEvent{Name: name, Handle: id, Err: err}))
	}
}

// Process runs the ProcessFunc over everything imported since the last call.
// Values reported NotReady go back to the queue. Returns how many assets
// finished, successfully or not.
func (s *Storage[A, D]) Process(w *ecs.World) int {
	s.qmx.Lock()
	batch := s.queue
	s.queue = nil
	s.qmx.Unlock()

	logger := w.Logger()
	finished := 0
	var retry []queued[D]
	for _, q := range batch {
		res, err := s.process(w, q.data)
		if err != nil {
			logger.Warn("asset processing failed", log.String("asset", q.name), log.Error(err))
			s.fail(q.id, q.name, fmt.Errorf("process %q: %w", q.name, err), q.tracker, w.EventBus())
			finished++
			continue
		}
		if !res.ready {
			q.data = res.data
			retry = append(retry, q)
			continue
		}

		s.mx.Lock()
		if sl, ok := s.slots[q.id]; ok {
			sl.value = res.asset
			sl.status = StatusLoaded
		}
		s.mx.Unlock()
		q.tracker.Success()
		finished++
		logger.Debug("asset loaded", log.String("asset", q.name), log.Uint64("handle", q.id))
		if b := w.EventBus(); b != nil {
			_ = b.Publish(bus.NewEvent(bus.AssetLoaded, "asset", LoadEvent{Name: q.name, Handle: q.id}))
		}
	}

	if len(retry) > 0 {
		s.qmx.Lock()
		s.queue = append(retry, s.queue...)
		s.qmx.Unlock()
	}
	return finished
}

// Maintain frees slots whose every handle was released. Slots still loading
// are kept until their load reports. Returns how many slots were freed.
func (s *Storage[A, D]) Maintain() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	freed := 0
	for id, sl := range s.slots {
		if sl.refs.Load() > 0 || sl.status == StatusLoading {
			continue
		}
		delete(s.slots, id)
		freed++
	}
	return freed
}
