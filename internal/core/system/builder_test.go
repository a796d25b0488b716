package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/forge/internal/core/ecs"
)

func noop(access Access) System {
	return Func(access, func(context.Context, *ecs.World) error { return nil })
}

func TestBuilder(t *testing.T) {
	t.Run("Registration errors", func(t *testing.T) {
		b := NewBuilder()
		require.ErrorIs(t, b.Add(noop(Access{}), ""), ErrEmptyName)
		require.ErrorIs(t, b.Add(nil, "nil"), ErrNilSystem)
		require.NoError(t, b.Add(noop(Access{}), "a"))
		require.ErrorIs(t, b.Add(noop(Access{}), "a"), ErrDuplicateSystem)
		require.ErrorIs(t, b.AddThreadLocal(noop(Access{}), "a"), ErrDuplicateSystem)
	})

	t.Run("Unknown dependency", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(Access{}), "a", "ghost"))
		_, err := b.Build()
		require.ErrorIs(t, err, ErrUnknownDependency)
		require.Contains(t, err.Error(), "ghost")
	})

	t.Run("Cycle", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(Access{}), "a", "c"))
		require.NoError(t, b.Add(noop(Access{}), "b", "a"))
		require.NoError(t, b.Add(noop(Access{}), "c", "b"))
		require.NoError(t, b.Add(noop(Access{}), "free"))
		_, err := b.Build()
		require.ErrorIs(t, err, ErrCyclicDependency)

		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		require.Equal(t, []string{"a", "b", "c"}, cycle.Systems)
	})

	t.Run("Self dependency is a cycle", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(Access{}), "a", "a"))
		_, err := b.Build()
		require.ErrorIs(t, err, ErrCyclicDependency)
	})

	t.Run("Dependencies may be declared before registration", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(Access{}), "render", "move"))
		require.NoError(t, b.Add(noop(Access{}), "move"))
		d, err := b.Build()
		require.NoError(t, err)
		require.Equal(t, []string{"move", "render"}, d.ExecutionOrder())
	})

	t.Run("Implicit conflict edges follow registration order", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(NewAccess(Write[position]())), "move"))
		require.NoError(t, b.Add(noop(NewAccess(Read[position]())), "render"))
		require.NoError(t, b.Add(noop(NewAccess(Read[position]())), "audio"))
		require.NoError(t, b.Add(noop(NewAccess(Write[velocity]())), "physics"))
		d, err := b.Build()
		require.NoError(t, err)

		assert.Equal(t, []string{"move"}, d.Predecessors("render"))
		assert.Equal(t, []string{"move"}, d.Predecessors("audio"), "readers do not order each other")
		assert.Empty(t, d.Predecessors("physics"))
		assert.Nil(t, d.Predecessors("ghost"))
	})

	t.Run("Explicit edge suppresses opposite implicit edge", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(NewAccess(Read[position]())), "render", "move"))
		require.NoError(t, b.Add(noop(NewAccess(Write[position]())), "move"))
		d, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"move"}, d.Predecessors("render"))
		assert.Empty(t, d.Predecessors("move"))
	})

	t.Run("Transitive order needs no extra edge", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(NewAccess(Write[position]())), "a"))
		require.NoError(t, b.Add(noop(Access{}), "b", "a"))
		require.NoError(t, b.Add(noop(NewAccess(Write[position]())), "c", "b"))
		d, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, d.Predecessors("c"))
	})

	t.Run("Barrier", func(t *testing.T) {
		b := NewBuilder()
		require.NoError(t, b.Add(noop(Access{}), "input"))
		require.NoError(t, b.Add(noop(Access{}), "network"))
		b.AddBarrier()
		require.NoError(t, b.Add(noop(Access{}), "simulate"))
		d, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, []string{"input", "network"}, d.Predecessors("simulate"))
	})

	t.Run("Deterministic", func(t *testing.T) {
		build := func() *Dispatcher {
			b := NewBuilder()
			require.NoError(t, b.Add(noop(NewAccess(Write[position](), Read[velocity]())), "move"))
			require.NoError(t, b.Add(noop(NewAccess(Write[velocity]())), "accelerate"))
			require.NoError(t, b.Add(noop(NewAccess(Read[position]())), "render"))
			require.NoError(t, b.AddThreadLocal(noop(Access{}), "present"))
			d, err := b.Build()
			require.NoError(t, err)
			return d
		}
		first := build()
		for i := 0; i < 10; i++ {
			d := build()
			require.Equal(t, first.ExecutionOrder(), d.ExecutionOrder())
			for _, name := range []string{"move", "accelerate", "render"} {
				require.Equal(t, first.Predecessors(name), d.Predecessors(name))
			}
		}
		require.Equal(t, []string{"move", "accelerate", "render", "present"}, first.ExecutionOrder())
		require.Equal(t, []string{"move"}, first.Predecessors("accelerate"))
		require.Equal(t, 4, first.Len())
	})
}
