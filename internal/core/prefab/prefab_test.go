package prefab

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/events/bus"
	"github.com/zeusync/forge/internal/core/system"
	"github.com/zeusync/forge/pkg/concurrent"
)

type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

type Sphere struct {
	Radius float64 `yaml:"radius"`
}

type Box struct {
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
	D float64 `yaml:"d"`
}

type MeshRef struct {
	Handle asset.Handle[[]byte]
}

type meshStorage = asset.Storage[[]byte, []byte]

// MeshData names a mesh file and resolves it to a handle during sub-asset
// loading.
type MeshData struct {
	File   string `yaml:"file"`
	handle asset.Handle[[]byte]
}

func (m *MeshData) TriggerSubLoading(progress *asset.ProgressCounter, w *ecs.World) (bool, error) {
	loader, ok := ecs.Fetch[*asset.Loader](w)
	if !ok {
		return false, errors.New("no loader")
	}
	meshes := ecs.MustResource[*meshStorage](w)
	m.handle = asset.Load(loader, m.File, asset.Bytes{}, progress, *meshes)
	return true, nil
}

func (m *MeshData) AddToEntity(e ecs.Entity, w *ecs.World, _ []ecs.Entity) error {
	_, _, err := ecs.Insert(w, e, MeshRef{Handle: m.handle.Clone()})
	return err
}

func (*MeshData) Access() system.Access {
	return system.NewAccess(system.Write[MeshRef](), system.Read[*meshStorage](), system.Read[*asset.Loader]())
}

type ShapeChoice struct {
	Sphere *Component[Sphere] `yaml:"sphere"`
	Box    *Component[Box]    `yaml:"box"`
}

type SceneData struct {
	Position *Component[Position] `yaml:"position"`
	Mesh     *MeshData            `yaml:"mesh"`
	Shape    ShapeChoice          `yaml:"shape" prefab:"oneof"`
}

func (s *SceneData) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return AddFields(s, e, w, es)
}

func (*SceneData) Access() system.Access { return FieldsAccess[SceneData]() }

func (s *SceneData) TriggerSubLoading(p *asset.ProgressCounter, w *ecs.World) (bool, error) {
	return TriggerFields(s, p, w)
}

type world struct {
	*ecs.World
	loader *asset.Loader
	meshes *meshStorage
}

func newWorld(t *testing.T, files map[string][]byte, opts ...ecs.Option) world {
	t.Helper()
	pool := concurrent.NewPool(2)
	t.Cleanup(pool.Close)
	w := ecs.NewWorld(opts...)
	l := asset.NewLoader(pool,
		asset.WithDefaultSource(asset.NewMemory(files)),
		asset.WithSource("testdata", asset.NewDirectory("testdata")),
	)
	meshes := asset.NewStorage(asset.Passthrough[[]byte]())
	ecs.InsertResource(w, l)
	ecs.InsertResource(w, meshes)
	return world{World: w, loader: l, meshes: meshes}
}

func dispatcherFor[T Data](t *testing.T, w *ecs.World, s *Storage[T]) *system.Dispatcher {
	t.Helper()
	inst, err := NewInstantiator[T]()
	require.NoError(t, err)
	b := system.NewBuilder(system.WithWorkers(2))
	require.NoError(t, b.Add(NewProcessor(s), "prefabs"))
	require.NoError(t, b.Add(inst, "instantiate"))
	d, err := b.Build()
	require.NoError(t, err)
	require.NoError(t, d.Setup(w))
	return d
}

func TestPrefabRoundTrip(t *testing.T) {
	type data = *Component[Position]
	w := newWorld(t, nil)
	s := NewStorage[data]()
	d := dispatcherFor(t, w.World, s)
	require.Equal(t, []string{"prefabs"}, d.Predecessors("instantiate"))

	progress := asset.NewProgressCounter()
	h := asset.LoadFrom(w.loader, "testdata", "pair.yaml", YAMLFormat[data]{KnownFields: true}, progress, s)
	main := w.CreateEntity()
	_, _, err := ecs.Insert(w.World, main, h)
	require.NoError(t, err)

	w.loader.Wait()
	require.NoError(t, d.Dispatch(context.Background(), w.World))
	require.Equal(t, asset.Complete, progress.Complete())

	inst, ok := ecs.Get[Instance[data]](w.World, main)
	require.True(t, ok)
	require.NoError(t, inst.Err)
	require.Len(t, inst.Entities, 2)
	require.Equal(t, main, inst.Entities[0])

	p, ok := ecs.Get[Position](w.World, main)
	require.True(t, ok)
	assert.Equal(t, Position{1, 2, 3}, *p)

	child := inst.Entities[1]
	p, ok = ecs.Get[Position](w.World, child)
	require.True(t, ok)
	assert.Equal(t, Position{4, 5, 6}, *p)
	parent, ok := ecs.Get[ecs.Parent](w.World, child)
	require.True(t, ok)
	assert.Equal(t, main, parent.Entity)
	assert.Equal(t, []ecs.Entity{child}, ecs.Children(w.World, main))

	require.NoError(t, d.Dispatch(context.Background(), w.World))
	require.Equal(t, 2, w.Entities().Len(), "an instance is built once")
}

func TestPrefabJSON(t *testing.T) {
	type data = *Component[Position]
	p, err := JSONFormat[data]{}.Import([]byte(`{"entities":[{"data":{"x":1}},{"parent":0,"data":{"y":2}}]}`))
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	require.Equal(t, Position{X: 1}, p.Entities[0].Data.Value)
	require.Equal(t, 0, *p.Entities[1].Parent)
	require.Equal(t, Position{Y: 2}, p.Entities[1].Data.Value)
}

func TestValidateParents(t *testing.T) {
	type data = *Component[Position]
	p, err := YAMLFormat[data]{}.Import(nil)
	require.NoError(t, err)
	require.ErrorIs(t, ValidateParents(p), ErrEmptyPrefab)

	require.NoError(t, ValidateParents(New(Main(NewComponent(Position{})), Child(0, NewComponent(Position{})))))
	require.ErrorIs(t, ValidateParents(New(Child(0, NewComponent(Position{})))), ErrInvalidParent)
}

func TestInstantiatorFailures(t *testing.T) {
	type data = *Component[Position]
	b := bus.New()
	var failures []InstanceEvent
	_, err := b.Subscribe(bus.PrefabFailed, func(ev bus.Event) error {
		failures = append(failures, ev.Data().(InstanceEvent))
		return nil
	})
	require.NoError(t, err)

	w := newWorld(t, map[string][]byte{"broken.yaml": []byte("entities: [")}, ecs.WithEventBus(b))
	s := NewStorage[data]()
	d := dispatcherFor(t, w.World, s)

	spawn := func(h Handle[data]) ecs.Entity {
		e := w.CreateEntity()
		_, _, err := ecs.Insert(w.World, e, h)
		require.NoError(t, err)
		return e
	}

	good := spawn(asset.LoadFromData("good", New(Main(NewComponent(Position{X: 1})), Child(0, NewComponent(Position{X: 2}))), nil, s))
	self := spawn(asset.LoadFromData("self", New(Main(NewComponent(Position{})), Child(1, NewComponent(Position{}))), nil, s))
	forward := spawn(asset.LoadFromData("forward", New(Child(0, NewComponent(Position{}))), nil, s))
	negative := spawn(asset.LoadFromData("negative", New(Main(NewComponent(Position{})), Child(-1, NewComponent(Position{}))), nil, s))
	broken := spawn(asset.Load(w.loader, "broken.yaml", YAMLFormat[data]{}, nil, s))
	w.loader.Wait()

	require.NoError(t, d.Dispatch(context.Background(), w.World))

	inst, ok := ecs.Get[Instance[data]](w.World, good)
	require.True(t, ok)
	require.NoError(t, inst.Err)
	require.Len(t, inst.Entities, 2)

	for _, e := range []ecs.Entity{self, forward, negative} {
		inst, ok := ecs.Get[Instance[data]](w.World, e)
		require.True(t, ok)
		require.ErrorIs(t, inst.Err, ErrInvalidParent)
		require.Empty(t, inst.Entities)
	}
	inst, ok = ecs.Get[Instance[data]](w.World, broken)
	require.True(t, ok)
	require.ErrorIs(t, inst.Err, ErrNotInstantiable)

	require.Equal(t, 5+1, w.Entities().Len(), "only the valid prefab spawned a child")
	require.Len(t, failures, 4)
}

type failingData struct {
	fail bool
}

func (f *failingData) AddToEntity(e ecs.Entity, w *ecs.World, _ []ecs.Entity) error {
	if f.fail {
		return errors.New("refused")
	}
	_, _, err := ecs.Insert(w, e, Position{})
	return err
}

func (*failingData) Access() system.Access { return system.NewAccess(system.Write[Position]()) }

func TestInstantiateRollsBack(t *testing.T) {
	w := ecs.NewWorld()
	main := w.CreateEntity()
	p := New(Main(&failingData{}), Child(0, &failingData{}), Child(1, &failingData{fail: true}))

	entities, err := Instantiate(w, main, p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "entry 2")
	require.Nil(t, entities)
	require.Equal(t, 1, w.Entities().Len())
	w.Maintain()
	require.Equal(t, 1, ecs.Components[Position](w).Len(), "only the main entity keeps its component")

	_, err = Instantiate(w, ecs.Entity{Index: 99, Generation: 1}, p)
	require.ErrorIs(t, err, ecs.ErrInvalidEntity)
}

func TestSubAssetLoading(t *testing.T) {
	files := map[string][]byte{"meshes/cube.mesh": []byte("cube")}

	t.Run("Prefab waits for sub-assets", func(t *testing.T) {
		w := newWorld(t, files)
		s := NewStorage[*SceneData]()
		top := asset.NewProgressCounter()
		h := asset.LoadFrom(w.loader, "testdata", "scene.yaml", YAMLFormat[*SceneData]{}, top, s)

		w.loader.Wait()
		require.Zero(t, s.Process(w.World))
		_, ok := s.Get(h)
		require.False(t, ok)
		require.False(t, top.IsComplete())

		w.loader.Wait()
		require.Zero(t, s.Process(w.World), "mesh imported but not processed yet")
		require.Equal(t, asset.Loading, top.Complete())

		w.meshes.Process(w.World)
		require.Equal(t, 1, s.Process(w.World))
		require.Equal(t, asset.Complete, top.Complete())

		p, ok := s.Get(h)
		require.True(t, ok)
		require.Equal(t, asset.Complete, p.Progress().Complete())
		require.Equal(t, 1, p.Progress().NumAssets())

		main := w.CreateEntity()
		entities, err := Instantiate(w.World, main, p)
		require.NoError(t, err)
		require.Len(t, entities, 3)

		ref, ok := ecs.Get[MeshRef](w.World, main)
		require.True(t, ok)
		mesh, ok := w.meshes.Get(ref.Handle)
		require.True(t, ok)
		require.Equal(t, []byte("cube"), mesh)

		require.True(t, ecs.Has[Sphere](w.World, entities[1]))
		require.False(t, ecs.Has[Box](w.World, entities[1]))
		box, ok := ecs.Get[Box](w.World, entities[2])
		require.True(t, ok)
		require.Equal(t, Box{W: 1, H: 2, D: 1}, *box)
		parent, _ := ecs.Get[ecs.Parent](w.World, entities[2])
		require.Equal(t, entities[1], parent.Entity)
	})

	t.Run("Failed sub-asset fails the prefab", func(t *testing.T) {
		w := newWorld(t, nil)
		s := NewStorage[*SceneData]()
		top := asset.NewProgressCounter()
		h := asset.LoadFrom(w.loader, "testdata", "scene.yaml", YAMLFormat[*SceneData]{}, top, s)

		w.loader.Wait()
		s.Process(w.World)
		w.loader.Wait()
		s.Process(w.World)

		require.Equal(t, asset.StatusFailed, s.Status(h))
		require.ErrorIs(t, s.Err(h), ErrSubAssetFailed)
		require.ErrorIs(t, s.Err(h), asset.ErrNotFound)
		require.Equal(t, asset.Failed, top.Complete())
	})
}
