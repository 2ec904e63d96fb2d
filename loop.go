package aebridge

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/slogx"
)

const (
	invPending int32 = iota
	invStarted
	invCancelled
)

// invocation is one unit of work marshaled onto a loop. Delivering threads
// block on Done; the cancel-before-start transition backs the dispatch
// timeout rule.
type invocation struct {
	fn    func()
	state atomic.Int32
	done  chan struct{}
}

func newInvocation(fn func()) *invocation {
	return &invocation{fn: fn, done: make(chan struct{})}
}

// run executes on the loop goroutine. A cancelled invocation is skipped.
func (c *invocation) run() {
	if !c.state.CompareAndSwap(invPending, invStarted) {
		return
	}
	defer close(c.done)
	c.fn()
}

// cancelIfNotStarted flips a queued invocation to cancelled. Once fn has
// begun executing this loses and reports false.
func (c *invocation) cancelIfNotStarted() bool {
	if c.state.CompareAndSwap(invPending, invCancelled) {
		close(c.done)
		return true
	}
	return false
}

func (c *invocation) started() bool {
	return c.state.Load() == invStarted
}

// Done unblocks when the invocation finished or was cancelled.
func (c *invocation) Done() <-chan struct{} { return c.done }

const (
	loopIdle int32 = iota
	loopRunning
	loopStopped
)

// Loop is an owning execution context: a single designated thread on which
// all handler callbacks registered against it run. Work arrives through a
// queue; the facility's delivering threads marshal onto the loop and block
// until their invocation completes.
//
// Create loops with Bridge.NewLoop and drive them with Run, typically on a
// dedicated goroutine.
type Loop struct {
	log  *slog.Logger
	bind func() engine.ThreadID

	tid atomic.Uint64

	mu       sync.Mutex
	cond     *sync.Cond
	q        *queue.Queue
	state    int32
	shutdown []func()

	done chan struct{}
}

func newLoop(log *slog.Logger, bind func() engine.ThreadID) *Loop {
	l := &Loop{
		log:  log.With(slogx.LoggerName("loop")),
		bind: bind,
		q:    queue.New(),
		done: make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// ThreadID reports the facility thread identity the loop is bound to. It is
// zero until Run has started.
func (l *Loop) ThreadID() engine.ThreadID {
	return engine.ThreadID(l.tid.Load())
}

// Run binds the loop to the calling goroutine's OS thread and drains the
// work queue until Shutdown. It returns ErrLoopTerminated if the loop has
// already run or been shut down.
func (l *Loop) Run() error {
	l.mu.Lock()
	if l.state != loopIdle {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	l.state = loopRunning
	l.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.tid.Store(uint64(l.bind()))
	l.log.Debug("loop running", slogx.Thread(l.tid.Load()))

	for {
		l.mu.Lock()
		for l.q.Length() == 0 && l.state == loopRunning {
			l.cond.Wait()
		}
		if l.state != loopRunning {
			rest := l.drainLocked()
			hooks := l.shutdown
			l.shutdown = nil
			l.mu.Unlock()

			for _, inv := range rest {
				inv.cancelIfNotStarted()
			}
			for _, fn := range hooks {
				fn()
			}
			l.log.Debug("loop stopped", slogx.Thread(l.tid.Load()))
			close(l.done)
			return nil
		}
		inv := l.q.Remove().(*invocation)
		l.mu.Unlock()
		inv.run()
	}
}

func (l *Loop) drainLocked() []*invocation {
	var rest []*invocation
	for l.q.Length() > 0 {
		rest = append(rest, l.q.Remove().(*invocation))
	}
	return rest
}

// Shutdown stops the loop. The invocation currently executing finishes;
// queued invocations that have not started are cancelled, and shutdown
// hooks run on the loop thread before Run returns. Shutdown itself does not
// wait; use Wait for that.
func (l *Loop) Shutdown() {
	l.mu.Lock()
	if l.state == loopStopped {
		l.mu.Unlock()
		return
	}
	wasIdle := l.state == loopIdle
	l.state = loopStopped
	l.cond.Broadcast()

	var rest []*invocation
	var hooks []func()
	if wasIdle {
		// Run never started and never will; sweep here instead
		rest = l.drainLocked()
		hooks = l.shutdown
		l.shutdown = nil
	}
	l.mu.Unlock()

	for _, inv := range rest {
		inv.cancelIfNotStarted()
	}
	for _, fn := range hooks {
		fn()
	}
	if wasIdle {
		close(l.done)
	}
}

// Wait blocks until the loop has fully stopped.
func (l *Loop) Wait() {
	<-l.done
}

// Post queues fn for execution on the loop thread without waiting for it.
func (l *Loop) Post(fn func()) error {
	_, err := l.submit(fn)
	return err
}

// submit enqueues fn and returns the invocation so the caller can block on
// completion or attempt a cancel-before-start. Queuing before Run has
// started is allowed; the work runs once the loop comes up.
func (l *Loop) submit(fn func()) (*invocation, error) {
	inv := newInvocation(fn)
	l.mu.Lock()
	if l.state == loopStopped {
		l.mu.Unlock()
		return nil, ErrLoopTerminated
	}
	l.q.Add(inv)
	l.cond.Signal()
	l.mu.Unlock()
	return inv, nil
}

// OnShutdown registers fn to run on the loop thread as the loop winds down.
// Hooks run in registration order after the queue has been swept.
func (l *Loop) OnShutdown(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == loopStopped {
		return ErrLoopTerminated
	}
	l.shutdown = append(l.shutdown, fn)
	return nil
}
