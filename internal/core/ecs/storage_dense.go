package ecs

var _ Storage[struct{}] = (*DenseStorage[struct{}])(nil)

// DenseStorage indexes a slice by entity index.
type DenseStorage[T any] struct {
	values  []T
	present []bool
	count   int
}

func NewDenseStorage[T any]() *DenseStorage[T] {
	return &DenseStorage[T]{}
}

func (s *DenseStorage[T]) Strategy() Strategy { return Dense }

func (s *DenseStorage[T]) Len() int { return s.count }

func (s *DenseStorage[T]) grow(index uint32) {
	need := int(index) + 1
	if need <= len(s.values) {
		return
	}
	if need <= cap(s.values) {
		s.values = s.values[:need]
		s.present = s.present[:need]
		return
	}
	size := 2 * cap(s.values)
	if size < need {
		size = need
	}
	values := make([]T, need, size)
	copy(values, s.values)
	present := make([]bool, need, size)
	copy(present, s.present)
	s.values, s.present = values, present
}

func (s *DenseStorage[T]) Insert(index uint32, v T) (prev T, replaced bool) {
	s.grow(index)
	if s.present[index] {
		prev, replaced = s.values[index], true
	} else {
		s.present[index] = true
		s.count++
	}
	s.values[index] = v
	return prev, replaced
}

func (s *DenseStorage[T]) Get(index uint32) (*T, bool) {
	if int(index) >= len(s.values) || !s.present[index] {
		return nil, false
	}
	return &s.values[index], true
}

func (s *DenseStorage[T]) Has(index uint32) bool {
	return int(index) < len(s.present) && s.present[index]
}

func (s *DenseStorage[T]) Remove(index uint32) (T, bool) {
	var zero T
	if !s.Has(index) {
		return zero, false
	}
	v := s.values[index]
	s.values[index] = zero
	s.present[index] = false
	s.count--
	return v, true
}

func (s *DenseStorage[T]) Delete(index uint32) bool {
	v, ok := s.Remove(index)
	if ok {
		release(v)
	}
	return ok
}

func (s *DenseStorage[T]) Each(fn func(index uint32, v *T) bool) {
	for i := range s.present {
		if !s.present[i] {
			continue
		}
		if !fn(uint32(i), &s.values[i]) {
			return
		}
	}
}
