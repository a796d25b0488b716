// Package app drives frames: the top state updates, systems are dispatched
// and the world is maintained, until no state is left.
package app

import (
	"context"
	"time"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/internal/core/observability/metrics"
	"github.com/zeusync/forge/internal/core/system"
)

// Time is the frame clock resource, updated before states and systems run.
type Time struct {
	Frame   uint64
	Delta   time.Duration
	Elapsed time.Duration
}

type Application struct {
	world      *ecs.World
	dispatcher *system.Dispatcher
	states     *StateMachine

	frameRate int
	maxFrames uint64
	logger    log.Log
	reporter  metrics.Reporter

	started bool
	start   time.Time
	last    time.Time
	frame   uint64
}

type Option func(*Application)

// WithFrameRate caps frames per second. Zero runs frames back to back.
func WithFrameRate(fps int) Option {
	return func(a *Application) { a.frameRate = fps }
}

// WithMaxFrames stops Run after n frames. Zero means unlimited.
func WithMaxFrames(n uint64) Option {
	return func(a *Application) { a.maxFrames = n }
}

func WithLogger(l log.Log) Option {
	return func(a *Application) { a.logger = l }
}

// WithReporter reports frame times to r.
func WithReporter(r metrics.Reporter) Option {
	return func(a *Application) { a.reporter = r }
}

func New(w *ecs.World, d *system.Dispatcher, initial State, opts ...Option) *Application {
	a := &Application{
		world:      w,
		dispatcher: d,
		states:     NewStateMachine(initial),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.NewNop()
	}
	if a.reporter == nil {
		a.reporter = metrics.Nop{}
	}
	return a
}

func (a *Application) World() *ecs.World { return a.world }

// Frame returns how many frames completed.
func (a *Application) Frame() uint64 { return a.frame }

// IsRunning reports whether another frame would run.
func (a *Application) IsRunning() bool { return a.states.IsRunning() }

// Setup runs system setup and starts the initial state. Run and Step call
// it on first use.
func (a *Application) Setup() error {
	if a.started {
		return nil
	}
	if err := a.dispatcher.Setup(a.world); err != nil {
		return err
	}
	now := time.Now()
	a.start, a.last = now, now
	ecs.InsertResource(a.world, Time{})
	a.started = true
	a.states.Start(a.world)
	a.logger.Info("application started", log.Int("systems", a.dispatcher.Len()))
	return nil
}

// Step runs one frame: state update, dispatch, then world maintenance. A
// dispatch error is fatal; the states are stopped and the error returned.
func (a *Application) Step(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}
	if !a.states.IsRunning() {
		return nil
	}

	now := time.Now()
	clock := ecs.MustResource[Time](a.world)
	clock.Frame = a.frame
	clock.Delta = now.Sub(a.last)
	clock.Elapsed = now.Sub(a.start)
	a.last = now

	if t := a.states.Update(a.world); t.Kind != TransNone {
		a.logger.Debug("state transition", log.String("kind", t.Kind.String()), log.Uint64("frame", a.frame))
	}
	if !a.states.IsRunning() {
		return nil
	}

	if err := a.dispatcher.Dispatch(ctx, a.world); err != nil {
		a.logger.Error("frame failed", log.Uint64("frame", a.frame), log.Error(err))
		a.states.Stop(a.world)
		return err
	}
	deleted := a.world.Maintain()
	a.frame++

	a.reporter.Timing("app.frame", time.Since(now))
	if deleted > 0 {
		a.reporter.Count("app.entities_deleted", int64(deleted))
	}
	return nil
}

// Run steps frames until the state stack empties, a state quits, the frame
// limit is reached or ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}
	defer a.states.Stop(a.world)

	var ticker *time.Ticker
	if a.frameRate > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(a.frameRate))
		defer ticker.Stop()
	}

	for a.states.IsRunning() {
		if a.maxFrames > 0 && a.frame >= a.maxFrames {
			break
		}
		if ctx.Err() != nil {
			a.logger.Info("application interrupted", log.Uint64("frames", a.frame))
			return nil
		}
		if err := a.Step(ctx); err != nil {
			return err
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}
	a.logger.Info("application stopped", log.Uint64("frames", a.frame))
	return nil
}
