// Package prefab loads entity templates as assets and instantiates them
// into a World. A prefab is a list of entries; entry 0 describes the entity
// holding the prefab handle, the others describe entities spawned for it.
package prefab

import (
	"fmt"
	"reflect"

	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
)

// Entry is one entity of a prefab. Parent, when set, is the index of an
// earlier entry that becomes the ecs.Parent of this one.
type Entry[T Data] struct {
	Parent *int `yaml:"parent,omitempty" json:"parent,omitempty"`
	Data   T    `yaml:"data,omitempty" json:"data,omitempty"`
}

// Prefab is a loaded template. Once stored it is only read.
type Prefab[T Data] struct {
	Entities []Entry[T] `yaml:"entities" json:"entities"`

	progress  *asset.ProgressCounter
	triggered bool
}

// New builds a prefab from entries, e.g. for LoadFromData.
func New[T Data](entries ...Entry[T]) *Prefab[T] {
	return &Prefab[T]{Entities: entries}
}

// Main returns a root entry.
func Main[T Data](data T) Entry[T] {
	return Entry[T]{Data: data}
}

// Child returns an entry parented to the entry at index parent.
func Child[T Data](parent int, data T) Entry[T] {
	return Entry[T]{Parent: &parent, Data: data}
}

// Progress is the counter of the prefab's sub-asset loads, nil before
// processing started.
func (p *Prefab[T]) Progress() *asset.ProgressCounter { return p.progress }

// Len returns the number of entries, the main entity included.
func (p *Prefab[T]) Len() int { return len(p.Entities) }

// Handle is the component placed on a main entity to request an instance.
type Handle[T Data] = asset.Handle[*Prefab[T]]

// Storage holds prefabs of data type T.
type Storage[T Data] = asset.Storage[*Prefab[T], *Prefab[T]]

// YAMLFormat imports prefab documents with yaml.v3.
type YAMLFormat[T Data] = asset.YAML[*Prefab[T]]

// JSONFormat imports prefab documents with goccy/go-json.
type JSONFormat[T Data] = asset.JSON[*Prefab[T]]

// NewStorage returns a prefab storage whose process step resolves sub-assets.
func NewStorage[T Data]() *Storage[T] {
	return asset.NewStorage[*Prefab[T], *Prefab[T]](Process[T])
}

// NewProcessor returns the system finishing prefab loads for s.
func NewProcessor[T Data](s *Storage[T]) *asset.Processor[*Prefab[T], *Prefab[T]] {
	return asset.NewProcessor(s)
}

// Process advances a prefab through sub-asset loading. The first call
// triggers sub-loads on a counter owned by the prefab; later calls keep it
// NotReady until that counter completes. A failed sub-load fails the prefab.
func Process[T Data](w *ecs.World, p *Prefab[T]) (asset.Processed[*Prefab[T], *Prefab[T]], error) {
	var none asset.Processed[*Prefab[T], *Prefab[T]]
	if p == nil {
		return none, ErrEmptyPrefab
	}
	if !p.triggered {
		p.progress = asset.NewProgressCounter()
		for i := range p.Entities {
			data := p.Entities[i].Data
			if isNil(data) {
				continue
			}
			loader, ok := any(data).(SubAssetLoader)
			if !ok {
				continue
			}
			if _, err := loader.TriggerSubLoading(p.progress, w); err != nil {
				return none, fmt.Errorf("entry %d: %w", i, err)
			}
		}
		p.triggered = true
	}

	switch p.progress.Complete() {
	case asset.Failed:
		return none, fmt.Errorf("%w: %w", ErrSubAssetFailed, p.progress.Err())
	case asset.Complete:
		return asset.Loaded[*Prefab[T], *Prefab[T]](p), nil
	default:
		return asset.NotReady[*Prefab[T]](p), nil
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
