// Package system schedules ECS systems. A Builder collects systems together
// with the data they read and write, resolves the execution graph once, and
// the resulting Dispatcher runs every frame with as much parallelism as the
// declared accesses allow.
package system

import (
	"context"
	"time"

	"github.com/zeusync/forge/internal/core/ecs"
)

// System is a unit of per-frame logic. Access must return the same set on
// every call; the dispatcher reads it once when the graph is built.
type System interface {
	Access() Access
	Run(ctx context.Context, w *ecs.World) error
}

// Setuper is implemented by systems that insert resources or register
// storages before the first frame.
type Setuper interface {
	Setup(w *ecs.World) error
}

// RunFunc is the body of a function system.
type RunFunc func(ctx context.Context, w *ecs.World) error

type funcSystem struct {
	access Access
	run    RunFunc
}

func (f funcSystem) Access() Access { return f.access }

func (f funcSystem) Run(ctx context.Context, w *ecs.World) error { return f.run(ctx, w) }

// Func adapts a closure into a System.
func Func(access Access, run RunFunc) System {
	return funcSystem{access: access, run: run}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
}

func (m *Metrics) record(start time.Time, took time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += took
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	if m.MinExecutionTime == 0 || took < m.MinExecutionTime {
		m.MinExecutionTime = took
	}
	m.LastExecutionTime = start
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
