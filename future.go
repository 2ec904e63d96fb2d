package aebridge

import (
	"sync"
	"sync/atomic"
)

// Future is the read side of an asynchronous result.
type Future[T any] interface {
	// Get blocks until the future settles and returns the result or the
	// settlement error. It is safe to call from multiple goroutines; all of
	// them observe the same settlement.
	Get() (T, error)
}

// Promise is the write side: exactly one of Complete or Error takes effect,
// later settlements are ignored.
type Promise[T any] interface {
	Complete(T)
	Error(error)
}

// CompletableFuture is both sides of the pair. Send returns one to its
// caller, and handlers hand one back (wrapped in Deferred) when their reply
// is not immediately available.
type CompletableFuture[T any] interface {
	Future[T]
	Promise[T]
}

type futResult[T any] struct {
	result T
	err    error
	done   bool
}

type future[T any] struct {
	ch     chan futResult[T]
	result atomic.Value // holds *futResult[T]
	once   sync.Once
	mu     sync.Mutex
}

// NewFuture returns an unsettled CompletableFuture.
func NewFuture[T any]() CompletableFuture[T] {
	f := &future[T]{
		ch: make(chan futResult[T], 1),
	}
	f.result.Store(&futResult[T]{})
	return f
}

func (f *future[T]) Get() (T, error) {
	res := f.result.Load().(*futResult[T])
	if res.done {
		return res.result, res.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// double-check after acquiring the lock
	res = f.result.Load().(*futResult[T])
	if res.done {
		return res.result, res.err
	}

	r := <-f.ch
	r.done = true
	f.result.Store(&r)
	return r.result, r.err
}

func (f *future[T]) Complete(value T) {
	f.once.Do(func() {
		f.ch <- futResult[T]{result: value}
	})
}

func (f *future[T]) Error(err error) {
	f.once.Do(func() {
		f.ch <- futResult[T]{err: err}
	})
}
