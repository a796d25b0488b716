package system

import (
	"fmt"
	"runtime"

	"github.com/zeusync/forge/internal/core/observability/log"
	"github.com/zeusync/forge/internal/core/observability/metrics"
)

type options struct {
	workers  int
	logger   log.Log
	reporter metrics.Reporter
}

type Option func(*options)

// WithWorkers bounds how many systems run at once. Values below 1 mean
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func WithLogger(l log.Log) Option {
	return func(o *options) { o.logger = l }
}

// WithReporter sends per-system timings to r.
func WithReporter(r metrics.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

type node struct {
	name   string
	sys    System
	access Access
	deps   []string
	stage  int
}

// Builder collects systems and turns them into a Dispatcher. It is not safe
// for concurrent use.
type Builder struct {
	opts        options
	nodes       []*node
	threadLocal []*node
	names       map[string]struct{}
	stage       int
}

func NewBuilder(opts ...Option) *Builder {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.logger == nil {
		o.logger = log.NewNop()
	}
	if o.reporter == nil {
		o.reporter = metrics.Nop{}
	}
	return &Builder{opts: o, names: make(map[string]struct{})}
}

func (b *Builder) register(sys System, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if sys == nil {
		return fmt.Errorf("%w: %q", ErrNilSystem, name)
	}
	if _, ok := b.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSystem, name)
	}
	b.names[name] = struct{}{}
	return nil
}

// Add registers sys under name. deps name systems that must finish before
// sys starts; they are resolved by Build, so they may be added later.
func (b *Builder) Add(sys System, name string, deps ...string) error {
	if err := b.register(sys, name); err != nil {
		return err
	}
	b.nodes = append(b.nodes, &node{
		name:   name,
		sys:    sys,
		access: sys.Access(),
		deps:   append([]string(nil), deps...),
		stage:  b.stage,
	})
	return nil
}

// AddThreadLocal registers a system that runs on the dispatching goroutine
// after the parallel graph finished, in registration order.
func (b *Builder) AddThreadLocal(sys System, name string) error {
	if err := b.register(sys, name); err != nil {
		return err
	}
	b.threadLocal = append(b.threadLocal, &node{name: name, sys: sys, access: sys.Access()})
	return nil
}

// AddBarrier makes every system added afterwards wait for every system added
// before.
func (b *Builder) AddBarrier() {
	b.stage++
}

// Build resolves the execution graph. Explicit dependencies and barriers are
// applied first. Then, walking pairs in registration order, two systems with
// conflicting access that are not already ordered get an edge from the one
// registered earlier to the later one. The result is identical for identical
// registrations.
func (b *Builder) Build() (*Dispatcher, error) {
	n := len(b.nodes)
	index := make(map[string]int, n)
	for i, nd := range b.nodes {
		index[nd.name] = i
	}

	g := newGraph(n)
	for i, nd := range b.nodes {
		for _, dep := range nd.deps {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %q depends on %q", ErrUnknownDependency, nd.name, dep)
			}
			g.addEdge(j, i)
		}
	}
	for i, later := range b.nodes {
		for j, earlier := range b.nodes[:i] {
			if earlier.stage < later.stage {
				g.addEdge(j, i)
			}
		}
	}

	order, rest := g.topological()
	if len(rest) > 0 {
		names := make([]string, len(rest))
		for k, i := range rest {
			names[k] = b.nodes[i].name
		}
		return nil, &CycleError{Systems: names}
	}

	implicit := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !b.nodes[i].access.ConflictsWith(b.nodes[j].access) {
				continue
			}
			if g.reachable(i, j) || g.reachable(j, i) {
				continue
			}
			g.addEdge(i, j)
			implicit++
		}
	}
	// Implicit edges only follow registration order between unordered
	// nodes, so the graph is still acyclic; recompute the order.
	order, _ = g.topological()

	d := newDispatcher(b.opts, b.nodes, b.threadLocal, g, order)
	b.opts.logger.Debug("dispatcher built",
		log.Int("systems", n),
		log.Int("thread_local", len(b.threadLocal)),
		log.Int("implicit_edges", implicit),
		log.Int("workers", b.opts.workers),
	)
	return d, nil
}

// graph is a small adjacency-list DAG over node indices.
type graph struct {
	succs [][]int
	preds [][]int
}

func newGraph(n int) *graph {
	return &graph{succs: make([][]int, n), preds: make([][]int, n)}
}

func (g *graph) addEdge(from, to int) {
	for _, s := range g.succs[from] {
		if s == to {
			return
		}
	}
	g.succs[from] = append(g.succs[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// topological runs Kahn's algorithm, picking the lowest ready index first.
// Nodes that could not be ordered sit on or behind a cycle and are returned
// in rest.
func (g *graph) topological() (order, rest []int) {
	n := len(g.succs)
	indeg := make([]int, n)
	for i := range g.preds {
		indeg[i] = len(g.preds[i])
	}
	done := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		order = append(order, next)
		for _, s := range g.succs[next] {
			indeg[s]--
		}
	}
	for i := 0; i < n; i++ {
		if !done[i] {
			rest = append(rest, i)
		}
	}
	return order, rest
}

func (g *graph) reachable(from, to int) bool {
	seen := make([]bool, len(g.succs))
	stack := []int{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, g.succs[cur]...)
	}
	return false
}
