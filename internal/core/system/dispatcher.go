package system

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/observability/log"
)

// Dispatcher runs a fixed set of systems once per Dispatch call. Systems
// whose accesses conflict are always ordered by an edge, so they never run at
// the same time.
type Dispatcher struct {
	opts        options
	nodes       []*node
	threadLocal []*node
	succs       [][]int
	preds       [][]int
	roots       []int
	order       []int
	index       map[string]int

	mx      sync.Mutex
	metrics map[string]*Metrics
}

func newDispatcher(opts options, nodes, threadLocal []*node, g *graph, order []int) *Dispatcher {
	d := &Dispatcher{
		opts:        opts,
		nodes:       nodes,
		threadLocal: threadLocal,
		succs:       g.succs,
		preds:       g.preds,
		order:       order,
		index:       make(map[string]int, len(nodes)+len(threadLocal)),
		metrics:     make(map[string]*Metrics, len(nodes)+len(threadLocal)),
	}
	for i, nd := range nodes {
		d.index[nd.name] = i
		d.metrics[nd.name] = &Metrics{}
		if len(g.preds[i]) == 0 {
			d.roots = append(d.roots, i)
		}
	}
	for _, nd := range threadLocal {
		d.metrics[nd.name] = &Metrics{}
	}
	return d
}

// Setup calls Setup on every system implementing Setuper, in registration
// order, parallel systems first.
func (d *Dispatcher) Setup(w *ecs.World) error {
	var errs []error
	for _, nd := range append(append([]*node(nil), d.nodes...), d.threadLocal...) {
		s, ok := nd.sys.(Setuper)
		if !ok {
			continue
		}
		if err := s.Setup(w); err != nil {
			errs = append(errs, fmt.Errorf("system %q: %w", nd.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotSetup, errors.Join(errs...))
	}
	return nil
}

// Dispatch runs every system once and returns when all of them finished.
// The first system error stops scheduling, lets running systems finish, and
// is returned wrapped with the system's name. A panicking system is
// re-raised on the calling goroutine as a *PanicError.
func (d *Dispatcher) Dispatch(ctx context.Context, w *ecs.World) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(d.nodes) > 0 {
		if err := d.dispatchGraph(ctx, w); err != nil {
			return err
		}
	}

	for _, nd := range d.threadLocal {
		if err := d.runLocal(ctx, nd, w); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatchGraph(ctx context.Context, w *ecs.World) error {
	n := len(d.nodes)
	remaining := make([]int, n)
	for i := range d.preds {
		remaining[i] = len(d.preds[i])
	}

	var (
		g        errgroup.Group
		failed   atomic.Bool
		panicked atomic.Pointer[PanicError]
		done     = make(chan int, n)
		launched int
	)
	g.SetLimit(d.opts.workers)

	launch := func(i int) {
		launched++
		nd := d.nodes[i]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					pe := &PanicError{System: nd.name, Value: r, Stack: debug.Stack()}
					panicked.CompareAndSwap(nil, pe)
					err = pe
				}
				if err != nil {
					failed.Store(true)
				}
				done <- i
			}()
			return d.run(ctx, nd, w)
		})
	}

	for _, i := range d.roots {
		launch(i)
	}
	for finished := 0; finished < launched; finished++ {
		i := <-done
		if failed.Load() {
			continue
		}
		for _, s := range d.succs[i] {
			remaining[s]--
			if remaining[s] == 0 {
				launch(s)
			}
		}
	}

	err := g.Wait()
	if pe := panicked.Load(); pe != nil {
		d.opts.logger.Error("system panicked", log.String("system", pe.System), log.Any("value", pe.Value))
		panic(pe)
	}
	return err
}

func (d *Dispatcher) runLocal(ctx context.Context, nd *node, w *ecs.World) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{System: nd.name, Value: r, Stack: debug.Stack()}
			d.opts.logger.Error("system panicked", log.String("system", pe.System), log.Any("value", pe.Value))
			panic(pe)
		}
	}()
	return d.run(ctx, nd, w)
}

func (d *Dispatcher) run(ctx context.Context, nd *node, w *ecs.World) error {
	start := time.Now()
	err := nd.sys.Run(ctx, w)
	took := time.Since(start)

	d.mx.Lock()
	d.metrics[nd.name].record(start, took, err)
	d.mx.Unlock()

	tag := "system:" + nd.name
	d.opts.reporter.Timing("system.run", took, tag)
	if err != nil {
		d.opts.reporter.Count("system.errors", 1, tag)
		d.opts.logger.Error("system failed", log.String("system", nd.name), log.Error(err))
		return fmt.Errorf("system %q: %w", nd.name, err)
	}
	return nil
}

// Predecessors lists the systems name waits for, explicit and implicit, in
// registration order. Unknown and thread-local names yield nil.
func (d *Dispatcher) Predecessors(name string) []string {
	i, ok := d.index[name]
	if !ok {
		return nil
	}
	preds := append([]int(nil), d.preds[i]...)
	slices.Sort(preds)
	out := make([]string, len(preds))
	for k, p := range preds {
		out[k] = d.nodes[p].name
	}
	return out
}

// ExecutionOrder returns one valid sequential order: the parallel graph in
// topological order followed by the thread-local systems.
func (d *Dispatcher) ExecutionOrder() []string {
	out := make([]string, 0, len(d.order)+len(d.threadLocal))
	for _, i := range d.order {
		out = append(out, d.nodes[i].name)
	}
	for _, nd := range d.threadLocal {
		out = append(out, nd.name)
	}
	return out
}

// Metrics returns a snapshot of name's execution statistics.
func (d *Dispatcher) Metrics(name string) (Metrics, bool) {
	d.mx.Lock()
	defer d.mx.Unlock()
	m, ok := d.metrics[name]
	if !ok {
		return Metrics{}, false
	}
	return *m, true
}

// Workers returns the parallelism bound.
func (d *Dispatcher) Workers() int { return d.opts.workers }

// Len returns the number of registered systems.
func (d *Dispatcher) Len() int { return len(d.nodes) + len(d.threadLocal) }
