package asset

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Progress hands out one Tracker per load. Pass NoProgress{} when nobody
// needs to observe completion.
type Progress interface {
	Tracker() Tracker
}

// Tracker reports the outcome of exactly one load. Only the first call to
// Success or Fail counts.
type Tracker interface {
	Success()
	Fail(name string, err error)
}

type NoProgress struct{}

func (NoProgress) Tracker() Tracker { return noTracker{} }

type noTracker struct{}

func (noTracker) Success()           {}
func (noTracker) Fail(string, error) {}

// Completion summarises a ProgressCounter.
type Completion uint8

const (
	Loading Completion = iota
	Complete
	Failed
)

func (c Completion) String() string {
	switch c {
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// LoadError describes one failed load recorded by a ProgressCounter.
type LoadError struct {
	Name string
	Err  error
}

func (e LoadError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e LoadError) Unwrap() error { return e.Err }

// ProgressCounter counts loads across loader workers. A load started by a
// tracked load (a sub-asset) registers on the same counter before its parent
// reports, so IsComplete covers the whole closure of triggered loads.
type ProgressCounter struct {
	assets  atomic.Int64
	loading atomic.Int64
	failed  atomic.Int64

	mx   sync.Mutex
	errs []LoadError
}

func NewProgressCounter() *ProgressCounter { return &ProgressCounter{} }

func (p *ProgressCounter) Tracker() Tracker {
	p.assets.Add(1)
	p.loading.Add(1)
	return &counterTracker{counter: p}
}

func (p *ProgressCounter) NumAssets() int  { return int(p.assets.Load()) }
func (p *ProgressCounter) NumLoading() int { return int(p.loading.Load()) }
func (p *ProgressCounter) NumFailed() int  { return int(p.failed.Load()) }

// NumFinished counts loads that reported, successfully or not.
func (p *ProgressCounter) NumFinished() int {
	return int(p.assets.Load() - p.loading.Load())
}

// IsComplete reports whether every tracked load reported.
func (p *ProgressCounter) IsComplete() bool { return p.loading.Load() == 0 }

// Complete is Failed as soon as one load failed, then Complete once nothing
// is loading.
func (p *ProgressCounter) Complete() Completion {
	switch {
	case p.failed.Load() > 0:
		return Failed
	case p.IsComplete():
		return Complete
	default:
		return Loading
	}
}

// Errors returns the recorded failures in report order.
func (p *ProgressCounter) Errors() []LoadError {
	p.mx.Lock()
	defer p.mx.Unlock()
	return append([]LoadError(nil), p.errs...)
}

// Err joins the recorded failures, or returns nil.
func (p *ProgressCounter) Err() error {
	loadErrs := p.Errors()
	if len(loadErrs) == 0 {
		return nil
	}
	errs := make([]error, len(loadErrs))
	for i, e := range loadErrs {
		errs[i] = e
	}
	return errors.Join(errs...)
}

type counterTracker struct {
	counter *ProgressCounter
	done    atomic.Bool
}

func (t *counterTracker) Success() {
	if !t.done.CompareAndSwap(false, true) {
		return
	}
	t.counter.loading.Add(-1)
}

func (t *counterTracker) Fail(name string, err error) {
	if !t.done.CompareAndSwap(false, true) {
		return
	}
	t.counter.mx.Lock()
	t.counter.errs = append(t.counter.errs, LoadError{Name: name, Err: err})
	t.counter.mx.Unlock()
	t.counter.failed.Add(1)
	t.counter.loading.Add(-1)
}
