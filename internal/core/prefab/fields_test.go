package prefab

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/system"
)

type Velocity struct{ X, Y, Z float64 }

type doublePosition struct {
	Spawn *Component[Position]
	Start *Component[Position]
}

func (d *doublePosition) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*doublePosition) Access() system.Access { return FieldsAccess[doublePosition]() }

type wrapper struct {
	Velocity *Component[Velocity]
	Inner    *doublePosition
}

func (d *wrapper) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*wrapper) Access() system.Access { return FieldsAccess[wrapper]() }

type bodyChoice struct {
	Still  *Component[Position]
	Moving *movingBody
}

type movingBody struct {
	Position Component[Position]
	Velocity *Component[Velocity]
}

func (d *movingBody) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*movingBody) Access() system.Access { return FieldsAccess[movingBody]() }

type body struct {
	Body bodyChoice `prefab:"oneof"`
	Tag  *Component[string]
	Note string
}

func (d *body) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*body) Access() system.Access { return FieldsAccess[body]() }

type clashingBody struct {
	Body  *bodyChoice `prefab:"oneof"`
	Extra *Component[Velocity]
}

func (d *clashingBody) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*clashingBody) Access() system.Access { return FieldsAccess[clashingBody]() }

type badChoice struct {
	Value Component[Position]
}

type badOneOf struct {
	Choice badChoice `prefab:"oneof"`
}

func (d *badOneOf) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*badOneOf) Access() system.Access { return FieldsAccess[badOneOf]() }

type linkA struct {
	Position *Component[Position]
	Next     *linkB
}

func (d *linkA) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*linkA) Access() system.Access { return FieldsAccess[linkA]() }

type linkB struct {
	Velocity *Component[Velocity]
	Back     *linkA
}

func (d *linkB) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*linkB) Access() system.Access { return FieldsAccess[linkB]() }

type treeNode struct {
	Position *Component[Position]
	Child    *treeNode
}

func (d *treeNode) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*treeNode) Access() system.Access { return FieldsAccess[treeNode]() }

type nodeChoice struct {
	Leaf *Component[Position]
	Node *variantNode
}

type variantNode struct {
	Kind nodeChoice `prefab:"oneof"`
}

func (d *variantNode) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*variantNode) Access() system.Access { return FieldsAccess[variantNode]() }

type sharedTwice struct {
	Left  *movingBody
	Right *Component[string]
	Again *wrapperFree
}

type wrapperFree struct {
	Inner *movingBody `prefab:"-"`
	Note  *Component[int]
}

func (d *wrapperFree) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*wrapperFree) Access() system.Access { return FieldsAccess[wrapperFree]() }

func (d *sharedTwice) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(d, e, w, es)
}
func (*sharedTwice) Access() system.Access { return FieldsAccess[sharedTwice]() }

func TestRecursiveData(t *testing.T) {
	t.Run("Mutual recursion", func(t *testing.T) {
		err := Validate[*linkA]()
		require.ErrorIs(t, err, ErrRecursiveData)
		assert.ErrorContains(t, err, "Next.Back")
		require.ErrorIs(t, Validate[*linkB](), ErrRecursiveData)
		assert.Empty(t, FieldsAccess[linkA]().Writes())

		_, err = NewInstantiator[*linkA]()
		require.ErrorIs(t, err, ErrRecursiveData)

		w := ecs.NewWorld()
		err = AddFields(&linkA{Position: NewComponent(Position{X: 1})}, w.CreateEntity(), w, nil)
		require.ErrorIs(t, err, ErrRecursiveData)
	})

	t.Run("Self recursion", func(t *testing.T) {
		require.ErrorIs(t, Validate[*treeNode](), ErrRecursiveData)
	})

	t.Run("Recursion through a oneof variant", func(t *testing.T) {
		err := Validate[*variantNode]()
		require.ErrorIs(t, err, ErrRecursiveData)
		assert.ErrorContains(t, err, "Kind.Node")
	})

	t.Run("Skipped fields are not followed", func(t *testing.T) {
		require.NoError(t, Validate[*sharedTwice]())
	})
}

func TestValidate(t *testing.T) {
	t.Run("Plain component", func(t *testing.T) {
		require.NoError(t, Validate[*Component[Position]]())
	})

	t.Run("Sibling conflict", func(t *testing.T) {
		err := Validate[*doublePosition]()
		var conflict *ConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, "Spawn", conflict.First)
		assert.Equal(t, "Start", conflict.Second)
		assert.Equal(t, reflect.TypeFor[Position](), conflict.Component)

		_, err = NewInstantiator[*doublePosition]()
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("Nested conflict is named by path", func(t *testing.T) {
		var conflict *ConflictError
		require.ErrorAs(t, Validate[*wrapper](), &conflict)
		assert.Equal(t, "Inner.Spawn", conflict.First)
		assert.Equal(t, "Inner.Start", conflict.Second)
		assert.Equal(t, reflect.TypeFor[wrapper](), conflict.Type)
	})

	t.Run("Oneof variants are exempt from each other", func(t *testing.T) {
		require.NoError(t, Validate[*body]())
		access := FieldsAccess[body]()
		assert.Equal(t, system.ModeWrite, access.Mode(reflect.TypeFor[Position]()))
		assert.Equal(t, system.ModeWrite, access.Mode(reflect.TypeFor[Velocity]()))
		assert.Equal(t, system.ModeWrite, access.Mode(reflect.TypeFor[string]()))
	})

	t.Run("Oneof union still checked against siblings", func(t *testing.T) {
		var conflict *ConflictError
		require.ErrorAs(t, Validate[*clashingBody](), &conflict)
		assert.Equal(t, "Body", conflict.First)
		assert.Equal(t, "Extra", conflict.Second)
		assert.Equal(t, reflect.TypeFor[Velocity](), conflict.Component)
	})

	t.Run("Oneof variants must be pointers", func(t *testing.T) {
		require.ErrorIs(t, Validate[*badOneOf](), ErrInvalidOneOf)
	})
}

func TestAddFields(t *testing.T) {
	t.Run("Selected variant", func(t *testing.T) {
		w := ecs.NewWorld()
		e := w.CreateEntity()
		d := &body{
			Body: bodyChoice{Moving: &movingBody{
				Position: Component[Position]{Value: Position{X: 1}},
				Velocity: NewComponent(Velocity{X: 2}),
			}},
			Tag: NewComponent("crate"),
		}
		require.NoError(t, d.AddToEntity(e, w, []ecs.Entity{e}))

		p, ok := ecs.Get[Position](w, e)
		require.True(t, ok)
		assert.Equal(t, 1.0, p.X)
		v, ok := ecs.Get[Velocity](w, e)
		require.True(t, ok)
		assert.Equal(t, 2.0, v.X)
		tag, ok := ecs.Get[string](w, e)
		require.True(t, ok)
		assert.Equal(t, "crate", *tag)
	})

	t.Run("Empty variants and nil fields", func(t *testing.T) {
		w := ecs.NewWorld()
		e := w.CreateEntity()
		require.NoError(t, (&body{}).AddToEntity(e, w, []ecs.Entity{e}))
		require.NoError(t, (&clashingBody{}).AddToEntity(e, w, []ecs.Entity{e}))
		require.False(t, ecs.Has[Position](w, e))
	})

	t.Run("Multiple variants", func(t *testing.T) {
		w := ecs.NewWorld()
		e := w.CreateEntity()
		d := &body{Body: bodyChoice{
			Still:  NewComponent(Position{}),
			Moving: &movingBody{},
		}}
		err := d.AddToEntity(e, w, []ecs.Entity{e})
		require.ErrorIs(t, err, ErrMultipleVariants)
		require.Contains(t, err.Error(), "Still")
		require.Contains(t, err.Error(), "Moving")
	})

	t.Run("Stale entity error carries the field", func(t *testing.T) {
		w := ecs.NewWorld()
		e := w.CreateEntity()
		w.DeleteEntity(e)
		err := (&body{Tag: NewComponent("x")}).AddToEntity(e, w, nil)
		require.ErrorIs(t, err, ecs.ErrInvalidEntity)
		require.Contains(t, err.Error(), "Tag")
	})

	t.Run("Non-struct data is ignored", func(t *testing.T) {
		require.NoError(t, AddFields(42, ecs.Entity{}, ecs.NewWorld(), nil))
		triggered, err := TriggerFields((*body)(nil), nil, ecs.NewWorld())
		require.NoError(t, err)
		require.False(t, triggered)
	})
}
