// Package motion holds kinematic components and the system that moves them.
// Integration is a plain Euler step; there is no collision handling.
package motion

import (
	"context"
	"math"

	"github.com/zeusync/forge/internal/core/app"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/system"
)

type Vec2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Scale(f float64) Vec2    { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Length() float64         { return math.Hypot(v.X, v.Y) }
func (v Vec2) Distance(o Vec2) float64 { return math.Hypot(o.X-v.X, o.Y-v.Y) }

type (
	Position Vec2
	Velocity Vec2
)

// Distance computes the Euclidean distance between two positions.
func Distance(a, b Position) float64 { return Vec2(a).Distance(Vec2(b)) }

// Step moves p by v over dt seconds.
func Step(p Position, v Velocity, dt float64) Position {
	return Position(Vec2(p).Add(Vec2(v).Scale(dt)))
}

// Movement integrates Velocity into Position using the frame delta.
func Movement() system.System {
	access := system.NewAccess(
		system.Write[Position](),
		system.Read[Velocity](),
		system.Read[app.Time](),
	)
	return system.Func(access, func(_ context.Context, w *ecs.World) error {
		dt := ecs.MustResource[app.Time](w).Delta.Seconds()
		ecs.Join2(w, func(_ ecs.Entity, p *Position, v *Velocity) bool {
			*p = Step(*p, *v, dt)
			return true
		})
		return nil
	})
}
