package asset

import (
	"fmt"

	"github.com/zeusync/forge/internal/core/events/bus"
	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/pkg/concurrent"
)

// Loader reads and imports assets on a worker pool. It never touches the
// world: imported data waits in the target Storage until a Processor runs.
type Loader struct {
	pool    *concurrent.Pool
	sources map[string]Source
	def     Source
	logger  log.Log
	bus     bus.EventBus
}

type LoaderOption func(*Loader)

// WithSource registers a named source for LoadFrom.
func WithSource(name string, src Source) LoaderOption {
	return func(l *Loader) { l.sources[name] = src }
}

// WithDefaultSource sets the source used by Load. Defaults to the current
// directory.
func WithDefaultSource(src Source) LoaderOption {
	return func(l *Loader) { l.def = src }
}

func WithLogger(logger log.Log) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithEventBus publishes bus.AssetFailed for read and import failures.
func WithEventBus(b bus.EventBus) LoaderOption {
	return func(l *Loader) { l.bus = b }
}

func NewLoader(pool *concurrent.Pool, opts ...LoaderOption) *Loader {
	l := &Loader{
		pool:    pool,
		sources: make(map[string]Source),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.def == nil {
		l.def = NewDirectory(".")
	}
	if l.logger == nil {
		l.logger = log.NewNop()
	}
	return l
}

// Source returns the named source, or the default one for "".
func (l *Loader) Source(name string) (Source, bool) {
	if name == "" {
		return l.def, true
	}
	src, ok := l.sources[name]
	return src, ok
}

// Load starts loading name from the default source and returns at once.
// The returned handle resolves in storage after the load was read,
// imported by format and processed.
func Load[A, D any](l *Loader, name string, format Format[D], progress Progress, storage *Storage[A, D]) Handle[A] {
	return LoadFrom(l, "", name, format, progress, storage)
}

// LoadFrom is Load with an explicit source registered via WithSource.
func LoadFrom[A, D any](l *Loader, source, name string, format Format[D], progress Progress, storage *Storage[A, D]) Handle[A] {
	if progress == nil {
		progress = NoProgress{}
	}
	tracker := progress.Tracker()
	h := storage.allocate(name)

	src, ok := l.Source(source)
	if !ok {
		loadFailed(l, storage, h.id, name, fmt.Errorf("%w: %q", ErrUnknownSource, source), tracker)
		return h
	}

	err := l.pool.Submit(func() {
		data, err := readAndImport(src, name, format)
		if err != nil {
			loadFailed(l, storage, h.id, name, err, tracker)
			return
		}
		storage.enqueue(h.id, name, data, tracker)
	})
	if err != nil {
		loadFailed(l, storage, h.id, name, fmt.Errorf("%w: %w", ErrLoaderClosed, err), tracker)
	}
	return h
}

// LoadFromData skips reading and importing; data goes straight to the
// processing queue.
func LoadFromData[A, D any](name string, data D, progress Progress, storage *Storage[A, D]) Handle[A] {
	if progress == nil {
		progress = NoProgress{}
	}
	tracker := progress.Tracker()
	h := storage.allocate(name)
	storage.enqueue(h.id, name, data, tracker)
	return h
}

// readAndImport turns a panic in src or format into an error so the slot
// still ends up failed.
func readAndImport[D any](src Source, name string, format Format[D]) (data D, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q as %s: %v", ErrLoadPanicked, name, format.Name(), r)
		}
	}()
	raw, err := src.Load(name)
	if err != nil {
		return data, fmt.Errorf("read %q: %w", name, err)
	}
	data, err = format.Import(raw)
	if err != nil {
		return data, fmt.Errorf("import %q as %s: %w", name, format.Name(), err)
	}
	return data, nil
}

func loadFailed[A, D any](l *Loader, storage *Storage[A, D], id uint64, name string, err error, tracker Tracker) {
	l.logger.Warn("asset load failed", log.String("asset", name), log.Error(err))
	storage.fail(id, name, err, tracker, l.bus)
}

// Wait blocks until every submitted read and import finished.
func (l *Loader) Wait() { l.pool.Wait() }
