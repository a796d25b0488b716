package concurrent

import (
	"errors"
	"runtime"
	"sync"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
	ErrNilTask    = errors.New("nil task")
)

// Pool is a fixed set of worker goroutines draining a task queue. Submit
// never blocks on a busy pool; tasks queue until a worker is free.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	workers int
	wg      sync.WaitGroup
	pending sync.WaitGroup
	onPanic func(recovered any)
}

type PoolOption func(*Pool)

// WithPanicHandler installs a callback for panics raised by tasks. Without
// one, a task panic is re-raised and crashes the process.
func WithPanicHandler(fn func(recovered any)) PoolOption {
	return func(p *Pool) { p.onPanic = fn }
}

// NewPool starts size workers. size <= 0 means runtime.GOMAXPROCS(0).
func NewPool(size int, opts ...PoolOption) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{workers: size}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Submit queues task for execution.
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.pending.Add(1)
	p.tasks = append(p.tasks, task)
	p.cond.Signal()
	return nil
}

// Wait blocks until every task submitted so far has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops accepting tasks, lets queued tasks finish and joins the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.tasks) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.tasks[0]
		p.tasks[0] = nil
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer p.pending.Done()
	if p.onPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				p.onPanic(r)
			}
		}()
	}
	task()
}
