package main

import (
	"context"
	"fmt"

	"github.com/zeusync/forge/internal/core/app"
	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/internal/core/prefab"
	"github.com/zeusync/forge/internal/core/system"
	"github.com/zeusync/forge/internal/core/systems/motion"
)

type (
	Name string
	// Fuel is seconds of movement left. A unit is deleted when it runs dry.
	Fuel float64
)

// UnitData describes one unit of a squad prefab.
type UnitData struct {
	Name     *prefab.Component[Name]            `yaml:"name" json:"name"`
	Position *prefab.Component[motion.Position] `yaml:"position" json:"position"`
	Velocity *prefab.Component[motion.Velocity] `yaml:"velocity" json:"velocity"`
	Fuel     *prefab.Component[Fuel]            `yaml:"fuel" json:"fuel"`
}

func (u *UnitData) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
	return prefab.AddFields(u, e, w, es)
}

func (*UnitData) Access() system.Access { return prefab.FieldsAccess[UnitData]() }

// Squad is the prefab run when no file is given: a leader with two
// escorts that burn out at different times.
func Squad() *prefab.Prefab[*UnitData] {
	unit := func(name string, x, vx, vy, fuel float64) *UnitData {
		return &UnitData{
			Name:     prefab.NewComponent(Name(name)),
			Position: prefab.NewComponent(motion.Position{X: x}),
			Velocity: prefab.NewComponent(motion.Velocity{X: vx, Y: vy}),
			Fuel:     prefab.NewComponent(Fuel(fuel)),
		}
	}
	return prefab.New(
		prefab.Main(unit("leader", 0, 1, 0, 3)),
		prefab.Child(0, unit("left", -1, 1, -0.5, 1)),
		prefab.Child(0, unit("right", 1, 1, 0.5, 2)),
	)
}

// Units lists entities that carry a Position.
func Units(w *ecs.World) []ecs.Entity {
	return ecs.Components[motion.Position](w).Entities()
}

func Decay() system.System {
	access := system.NewAccess(system.Write[Fuel](), system.Read[app.Time]())
	return system.Func(access, func(_ context.Context, w *ecs.World) error {
		dt := ecs.MustResource[app.Time](w).Delta.Seconds()
		ecs.Components[Fuel](w).Each(func(e ecs.Entity, f *Fuel) bool {
			*f -= Fuel(dt)
			if *f <= 0 {
				w.DeleteEntity(e)
			}
			return true
		})
		return nil
	})
}

// loadingState starts the squad load and waits for its instance.
type loadingState struct {
	app.EmptyState

	loader  *asset.Loader
	storage *prefab.Storage[*UnitData]
	name    string
	source  string

	progress *asset.ProgressCounter
	main     ecs.Entity
	err      error
}

func (s *loadingState) OnStart(w *ecs.World) {
	s.progress = asset.NewProgressCounter()
	var h prefab.Handle[*UnitData]
	switch {
	case s.name == "":
		h = asset.LoadFromData("squad", Squad(), s.progress, s.storage)
	case s.source == "":
		h = asset.Load(s.loader, s.name, prefab.YAMLFormat[*UnitData]{}, s.progress, s.storage)
	default:
		h = asset.LoadFrom(s.loader, s.source, s.name, prefab.YAMLFormat[*UnitData]{}, s.progress, s.storage)
	}
	s.main = w.CreateEntity()
	if _, _, err := ecs.Insert(w, s.main, h); err != nil {
		s.err = err
	}
}

func (s *loadingState) Update(w *ecs.World) app.Trans {
	if s.err != nil {
		return app.Quit()
	}
	if s.progress.Complete() == asset.Failed {
		s.err = s.progress.Err()
		return app.Quit()
	}
	inst, ok := ecs.Get[prefab.Instance[*UnitData]](w, s.main)
	if !ok {
		return app.None()
	}
	if inst.Err != nil {
		s.err = fmt.Errorf("instantiate squad: %w", inst.Err)
		return app.Quit()
	}
	w.Logger().Info("squad ready", log.Int("units", len(inst.Entities)))
	return app.Switch(simulatingState{})
}

// simulatingState quits once every unit has burned its fuel.
type simulatingState struct {
	app.EmptyState
}

func (simulatingState) Update(w *ecs.World) app.Trans {
	if len(Units(w)) == 0 {
		return app.Quit()
	}
	return app.None()
}
