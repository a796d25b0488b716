package ecs

import (
	"encoding/binary"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const defaultHashShards = 16

var _ Storage[struct{}] = (*HashStorage[struct{}])(nil)

// HashStorage spreads components over xxhash-selected shards, each a map
// guarded by its own RWMutex. Memory stays proportional to the number of
// stored components regardless of how large entity indices grow.
type HashStorage[T any] struct {
	shards []hashShard[T]
	count  atomic.Int64
}

type hashShard[T any] struct {
	mx     sync.RWMutex
	values map[uint32]*T
}

// NewHashStorage creates a storage with shardCount shards (16 when <= 0).
func NewHashStorage[T any](shardCount int) *HashStorage[T] {
	if shardCount <= 0 {
		shardCount = defaultHashShards
	}
	h := &HashStorage[T]{shards: make([]hashShard[T], shardCount)}
	for i := range h.shards {
		h.shards[i].values = make(map[uint32]*T)
	}
	return h
}

func (h *HashStorage[T]) shard(index uint32) *hashShard[T] {
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], index)
	return &h.shards[xxhash.Sum64(key[:])%uint64(len(h.shards))]
}

func (h *HashStorage[T]) Strategy() Strategy { return Hash }

func (h *HashStorage[T]) Len() int { return int(h.count.Load()) }

// ShardCount returns the number of shards.
func (h *HashStorage[T]) ShardCount() int { return len(h.shards) }

func (h *HashStorage[T]) Insert(index uint32, v T) (prev T, replaced bool) {
	sh := h.shard(index)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	if cur, ok := sh.values[index]; ok {
		prev = *cur
		*cur = v
		return prev, true
	}
	sh.values[index] = &v
	h.count.Add(1)
	return prev, false
}

func (h *HashStorage[T]) Get(index uint32) (*T, bool) {
	sh := h.shard(index)
	sh.mx.RLock()
	defer sh.mx.RUnlock()
	v, ok := sh.values[index]
	return v, ok
}

func (h *HashStorage[T]) Has(index uint32) bool {
	_, ok := h.Get(index)
	return ok
}

func (h *HashStorage[T]) Remove(index uint32) (T, bool) {
	var zero T
	sh := h.shard(index)
	sh.mx.Lock()
	defer sh.mx.Unlock()
	v, ok := sh.values[index]
	if !ok {
		return zero, false
	}
	delete(sh.values, index)
	h.count.Add(-1)
	return *v, true
}

func (h *HashStorage[T]) Delete(index uint32) bool {
	v, ok := h.Remove(index)
	if ok {
		release(v)
	}
	return ok
}

// Each visits components in ascending index order. The shards are
// snapshotted first, so fn may insert into or remove from this storage.
func (h *HashStorage[T]) Each(fn func(index uint32, v *T) bool) {
	type entry struct {
		index uint32
		value *T
	}
	entries := make([]entry, 0, h.Len())
	for i := range h.shards {
		sh := &h.shards[i]
		sh.mx.RLock()
		for idx, v := range sh.values {
			entries = append(entries, entry{idx, v})
		}
		sh.mx.RUnlock()
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })
	for _, e := range entries {
		if !fn(e.index, e.value) {
			return
		}
	}
}
