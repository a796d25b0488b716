package system

import (
	"reflect"
	"slices"
	"strings"
)

// Mode is how a system touches a resource or component type.
type Mode uint8

const (
	ModeRead Mode = iota + 1
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "none"
	}
}

// Requirement is one entry of an access set.
type Requirement struct {
	Type reflect.Type
	Mode Mode
}

// Read declares shared access to T. T is either a component type or the
// exact type a resource was inserted with.
func Read[T any]() Requirement {
	return Requirement{Type: reflect.TypeFor[T](), Mode: ModeRead}
}

// Write declares exclusive access to T.
func Write[T any]() Requirement {
	return Requirement{Type: reflect.TypeFor[T](), Mode: ModeWrite}
}

// Access is the set of types a system reads and writes. A type present in
// both sets counts as written. The zero Access declares nothing.
type Access struct {
	reads  map[reflect.Type]struct{}
	writes map[reflect.Type]struct{}
}

func NewAccess(reqs ...Requirement) Access {
	var a Access
	for _, r := range reqs {
		a.add(r)
	}
	return a
}

func (a *Access) add(r Requirement) {
	if r.Type == nil {
		return
	}
	switch r.Mode {
	case ModeWrite:
		if a.writes == nil {
			a.writes = make(map[reflect.Type]struct{})
		}
		a.writes[r.Type] = struct{}{}
		delete(a.reads, r.Type)
	case ModeRead:
		if _, ok := a.writes[r.Type]; ok {
			return
		}
		if a.reads == nil {
			a.reads = make(map[reflect.Type]struct{})
		}
		a.reads[r.Type] = struct{}{}
	}
}

// With returns a copy of a extended by reqs.
func (a Access) With(reqs ...Requirement) Access {
	out := a.Union(Access{})
	for _, r := range reqs {
		out.add(r)
	}
	return out
}

// Union merges two access sets; writes win over reads.
func (a Access) Union(other Access) Access {
	var out Access
	for _, src := range []Access{a, other} {
		for t := range src.writes {
			out.add(Requirement{Type: t, Mode: ModeWrite})
		}
	}
	for _, src := range []Access{a, other} {
		for t := range src.reads {
			out.add(Requirement{Type: t, Mode: ModeRead})
		}
	}
	return out
}

// Mode reports how a touches t, or zero when it does not.
func (a Access) Mode(t reflect.Type) Mode {
	if _, ok := a.writes[t]; ok {
		return ModeWrite
	}
	if _, ok := a.reads[t]; ok {
		return ModeRead
	}
	return 0
}

// Reads lists the types read but not written, sorted by name.
func (a Access) Reads() []reflect.Type { return sortedTypes(a.reads) }

// Writes lists the written types, sorted by name.
func (a Access) Writes() []reflect.Type { return sortedTypes(a.writes) }

func (a Access) IsEmpty() bool { return len(a.reads) == 0 && len(a.writes) == 0 }

// Conflicts returns the types that make a and other unsafe to run
// concurrently: written by both, or written by one and read by the other.
// The result is sorted by type name.
func (a Access) Conflicts(other Access) []reflect.Type {
	seen := make(map[reflect.Type]struct{})
	for t := range a.writes {
		if other.Mode(t) != 0 {
			seen[t] = struct{}{}
		}
	}
	for t := range other.writes {
		if a.Mode(t) != 0 {
			seen[t] = struct{}{}
		}
	}
	return sortedTypes(seen)
}

// ConflictsWith reports whether Conflicts would be non-empty.
func (a Access) ConflictsWith(other Access) bool {
	for t := range a.writes {
		if other.Mode(t) != 0 {
			return true
		}
	}
	for t := range other.writes {
		if _, ok := a.reads[t]; ok {
			return true
		}
	}
	return false
}

func (a Access) String() string {
	parts := make([]string, 0, len(a.reads)+len(a.writes))
	for _, t := range a.Writes() {
		parts = append(parts, "write "+t.String())
	}
	for _, t := range a.Reads() {
		parts = append(parts, "read "+t.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedTypes(set map[reflect.Type]struct{}) []reflect.Type {
	if len(set) == 0 {
		return nil
	}
	out := make([]reflect.Type, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.SortFunc(out, func(x, y reflect.Type) int { return strings.Compare(x.String(), y.String()) })
	return out
}
