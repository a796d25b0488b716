package ecs

var _ Storage[struct{}] = (*SparseStorage[struct{}])(nil)

const absent = -1

// SparseStorage is a sparse set: a lookup table from entity index to a
// position in the packed dense/values arrays. Removal swaps the last element
// into the hole, so iteration order is not insertion order.
type SparseStorage[T any] struct {
	sparse []int32
	dense  []uint32
	values []T
}

func NewSparseStorage[T any]() *SparseStorage[T] {
	return &SparseStorage[T]{}
}

func (s *SparseStorage[T]) Strategy() Strategy { return Sparse }

func (s *SparseStorage[T]) Len() int { return len(s.dense) }

func (s *SparseStorage[T]) position(index uint32) int32 {
	if int(index) >= len(s.sparse) {
		return absent
	}
	return s.sparse[index]
}

func (s *SparseStorage[T]) Insert(index uint32, v T) (prev T, replaced bool) {
	if pos := s.position(index); pos != absent {
		prev = s.values[pos]
		s.values[pos] = v
		return prev, true
	}
	for int(index) >= len(s.sparse) {
		s.sparse = append(s.sparse, absent)
	}
	s.sparse[index] = int32(len(s.dense))
	s.dense = append(s.dense, index)
	s.values = append(s.values, v)
	return prev, false
}

func (s *SparseStorage[T]) Get(index uint32) (*T, bool) {
	pos := s.position(index)
	if pos == absent {
		return nil, false
	}
	return &s.values[pos], true
}

func (s *SparseStorage[T]) Has(index uint32) bool {
	return s.position(index) != absent
}

func (s *SparseStorage[T]) Remove(index uint32) (T, bool) {
	var zero T
	pos := s.position(index)
	if pos == absent {
		return zero, false
	}
	v := s.values[pos]
	last := int32(len(s.dense) - 1)
	if pos != last {
		moved := s.dense[last]
		s.dense[pos] = moved
		s.values[pos] = s.values[last]
		s.sparse[moved] = pos
	}
	s.values[last] = zero
	s.dense = s.dense[:last]
	s.values = s.values[:last]
	s.sparse[index] = absent
	return v, true
}

func (s *SparseStorage[T]) Delete(index uint32) bool {
	v, ok := s.Remove(index)
	if ok {
		release(v)
	}
	return ok
}

func (s *SparseStorage[T]) Each(fn func(index uint32, v *T) bool) {
	for i := range s.dense {
		if !fn(s.dense[i], &s.values[i]) {
			return
		}
	}
}
