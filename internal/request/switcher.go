package request

import (
	"context"
	"sync"
)

// Executor runs submitted functions somewhere.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Post calls f(fn).
func (f ExecutorFunc) Post(fn func()) {
	f(fn)
}

var (
	// Inline runs fn on the posting goroutine.
	Inline Executor = ExecutorFunc(func(fn func()) { fn() })
	// Goroutine runs fn on a new goroutine.
	Goroutine Executor = ExecutorFunc(func(fn func()) { go fn() })
)

// ThreadSwitcher decides where asynchronous requests run and where their
// callbacks are delivered.
type ThreadSwitcher struct {
	Main       Executor
	Background Executor
}

// DefaultThreadSwitcher runs requests on a new goroutine and delivers the
// callback on that same goroutine.
func DefaultThreadSwitcher() *ThreadSwitcher {
	return &ThreadSwitcher{Main: Inline, Background: Goroutine}
}

// LooperThreadSwitcher runs requests on a new goroutine and delivers
// callbacks through looper.
func LooperThreadSwitcher(looper *Looper) *ThreadSwitcher {
	return &ThreadSwitcher{Main: looper, Background: Goroutine}
}

// Looper is a queue-backed Executor. Callbacks posted to it only run when
// the owning goroutine drains the queue, which makes that goroutine the
// designated callback thread.
type Looper struct {
	mu      sync.Mutex
	pending []func()
	notify  chan struct{}
}

// NewLooper creates an empty Looper.
func NewLooper() *Looper {
	return &Looper{notify: make(chan struct{}, 1)}
}

// Post queues fn. It never blocks.
func (l *Looper) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued functions.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Idle runs everything currently queued and returns how many ran.
// Functions posted while draining are run too.
func (l *Looper) Idle() int {
	n := 0
	for fn := l.pop(); fn != nil; fn = l.pop() {
		fn()
		n++
	}
	return n
}

// RunOne waits for a queued function and runs it.
func (l *Looper) RunOne(ctx context.Context) error {
	for {
		if fn := l.pop(); fn != nil {
			fn()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		}
	}
}

// Run drains the queue until ctx is cancelled.
func (l *Looper) Run(ctx context.Context) error {
	for {
		if err := l.RunOne(ctx); err != nil {
			return err
		}
	}
}

func (l *Looper) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn
}
