package system

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y float64 }

type velocity struct{ X, Y float64 }

type deltaTime float64

func TestAccess(t *testing.T) {
	t.Run("Write wins over read", func(t *testing.T) {
		a := NewAccess(Read[position](), Write[position]())
		require.Equal(t, ModeWrite, a.Mode(reflect.TypeFor[position]()))
		require.Empty(t, a.Reads())
		require.Len(t, a.Writes(), 1)

		b := NewAccess(Write[position](), Read[position]())
		require.Equal(t, ModeWrite, b.Mode(reflect.TypeFor[position]()))
	})

	t.Run("Conflicts", func(t *testing.T) {
		move := NewAccess(Write[position](), Read[velocity](), Read[deltaTime]())
		render := NewAccess(Read[position]())
		physics := NewAccess(Write[velocity](), Read[deltaTime]())
		clock := NewAccess(Write[deltaTime]())

		assert.Equal(t, []reflect.Type{reflect.TypeFor[position]()}, move.Conflicts(render))
		assert.True(t, render.ConflictsWith(move))
		assert.False(t, render.ConflictsWith(physics))
		assert.True(t, move.ConflictsWith(physics))
		assert.ElementsMatch(t,
			[]reflect.Type{reflect.TypeFor[velocity](), reflect.TypeFor[deltaTime]()},
			physics.Union(clock).Conflicts(move))
		assert.False(t, NewAccess(Read[deltaTime]()).ConflictsWith(NewAccess(Read[deltaTime]())))
		assert.False(t, Access{}.ConflictsWith(clock))
	})

	t.Run("Union and With do not alias", func(t *testing.T) {
		base := NewAccess(Read[position]())
		extended := base.With(Write[position]())
		require.Equal(t, ModeRead, base.Mode(reflect.TypeFor[position]()))
		require.Equal(t, ModeWrite, extended.Mode(reflect.TypeFor[position]()))

		u := base.Union(NewAccess(Read[velocity]()))
		require.Len(t, u.Reads(), 2)
		require.True(t, Access{}.IsEmpty())
	})

	t.Run("String", func(t *testing.T) {
		a := NewAccess(Read[velocity](), Write[position]())
		require.Equal(t, "{write system.position, read system.velocity}", a.String())
	})
}
