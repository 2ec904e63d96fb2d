package aebridge

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alphadose/haxmap"
	"github.com/facebookgo/clock"
	"github.com/fogfish/opts"

	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
	"github.com/osakit/aebridge/pkg/slogx"
)

// registration holds everything dispatch needs for one (class, id) key: the
// owning loop, the callback, and the opaque token passed through the
// facility so the shared thunk can find its way back here.
type registration struct {
	class fourcc.Code
	id    fourcc.Code
	loop  *Loop
	fn    HandlerFunc
	token uint64
}

// Bridge owns the event facility and the process-wide registries around it:
// the handler table, the per-loop thunk cache, the poisoned set, and the
// in-flight invocation counter. Construct one with New, create loops with
// NewLoop, register handlers with Handle, and send events with Send.
//
// Locking discipline: each table has its own guard and none is ever held
// across a handler callback, so handlers can re-register and unregister
// freely from within an invocation.
type Bridge struct {
	cfg  Config
	log  *slog.Logger
	base *slog.Logger
	clk  clock.Clock
	hook Hook
	eng  *engine.Engine

	handlers *haxmap.Map[uint64, *registration]
	byToken  *haxmap.Map[uint64, *registration]
	tokens   atomic.Uint64

	thunkMu  sync.Mutex
	thunks   map[*Loop]engine.DispatchFunc
	poisoned map[*Loop]struct{}

	inflight atomic.Int64
	closed   atomic.Bool
}

// New constructs a bridge with the given options.
func New(options ...opts.Option[Bridge]) (*Bridge, error) {
	b := &Bridge{
		cfg:  DefaultConfig(),
		log:  slog.Default(),
		clk:  clock.New(),
		hook: NoopHook{},
	}
	if err := opts.Apply(b, options); err != nil {
		return nil, err
	}

	b.base = b.log
	b.log = b.base.With(slogx.LoggerName("bridge"))
	b.eng = engine.New(b.clk, b.base)
	b.handlers = haxmap.New[uint64, *registration]()
	b.byToken = haxmap.New[uint64, *registration]()
	b.thunks = make(map[*Loop]engine.DispatchFunc)
	b.poisoned = make(map[*Loop]struct{})
	return b, nil
}

// NewLoop creates an owning execution context backed by this bridge's
// facility. Drive it with Run, typically on a dedicated goroutine.
func (b *Bridge) NewLoop() *Loop {
	return newLoop(b.base, b.eng.NextThread)
}

// Handle registers fn for the (class, id) key, to be invoked on loop's
// thread. At most one handler per key: a second registration fails with
// ErrAlreadyRegistered. A loop whose dispatch plumbing could not be set up
// is poisoned and every Handle against it fails with
// ErrFacilityUnavailable until the loop is torn down.
func (b *Bridge) Handle(loop *Loop, class, id fourcc.Code, fn HandlerFunc) error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}
	if loop == nil {
		return errors.New("aebridge: Handle: loop is required")
	}
	if class.IsZero() || id.IsZero() {
		return errors.New("aebridge: Handle: invalid event class or ID")
	}
	if fn == nil {
		return errors.New("aebridge: Handle: handler is required")
	}

	thunk, err := b.loopThunk(loop)
	if err != nil {
		return err
	}

	reg := &registration{class: class, id: id, loop: loop, fn: fn, token: b.tokens.Add(1)}
	key := engine.PackKey(class, id)
	if _, loaded := b.handlers.GetOrSet(key, reg); loaded {
		return ErrAlreadyRegistered
	}
	b.byToken.Set(reg.token, reg)

	if st := b.eng.Install(class, id, thunk, reg.token); st != oserr.NoErr {
		b.handlers.Del(key)
		b.byToken.Del(reg.token)
		return oserr.New(st, "AEInstallEventHandler failed")
	}
	b.log.Debug("handler registered", slogx.EventKey(class, id))
	return nil
}

// Unhandle removes the registration for (class, id). A key with no
// registration is a no-op. While any handler invocation is in flight it
// fails with ErrHandlerBusy; callers defer and retry, because removing an
// installation under a live invocation could race a callback still writing
// into the reply buffer.
func (b *Bridge) Unhandle(class, id fourcc.Code) error {
	if b.closed.Load() {
		return ErrBridgeClosed
	}
	key := engine.PackKey(class, id)
	reg, ok := b.handlers.Get(key)
	if !ok {
		return nil
	}
	if b.inflight.Load() != 0 {
		return ErrHandlerBusy
	}
	if st := b.eng.Remove(class, id); st != oserr.NoErr && st != oserr.ErrAEHandlerNotFound {
		return oserr.New(st, "AERemoveEventHandler failed")
	}
	b.handlers.Del(key)
	b.byToken.Del(reg.token)
	b.log.Debug("handler removed", slogx.EventKey(class, id))
	return nil
}

// loopThunk returns the shared dispatch thunk for loop, creating and
// caching it on first use. Creating the thunk registers the loop's teardown
// sweep; if that cannot be done the loop is poisoned.
func (b *Bridge) loopThunk(loop *Loop) (engine.DispatchFunc, error) {
	b.thunkMu.Lock()
	defer b.thunkMu.Unlock()

	if _, bad := b.poisoned[loop]; bad {
		return nil, ErrFacilityUnavailable
	}
	if fn, ok := b.thunks[loop]; ok {
		return fn, nil
	}

	if err := loop.OnShutdown(func() { b.teardownLoop(loop) }); err != nil {
		b.poisoned[loop] = struct{}{}
		b.log.Error("poisoning loop, teardown hook registration failed", slogx.Error(err))
		return nil, ErrFacilityUnavailable
	}
	fn := func(event, reply *engine.Desc, refcon uint64, tid engine.ThreadID) int32 {
		return b.dispatch(event, reply, refcon, tid)
	}
	b.thunks[loop] = fn
	return fn, nil
}

// teardownLoop is the single sweep run from the loop's shutdown hook:
// every registration owned by the loop goes, along with its thunk cache
// entry and poisoned flag.
func (b *Bridge) teardownLoop(loop *Loop) {
	var keys []uint64
	b.handlers.ForEach(func(key uint64, reg *registration) bool {
		if reg.loop == loop {
			keys = append(keys, key)
		}
		return true
	})
	for _, key := range keys {
		reg, ok := b.handlers.Get(key)
		if !ok || reg.loop != loop {
			continue
		}
		_ = b.eng.Remove(reg.class, reg.id)
		b.handlers.Del(key)
		b.byToken.Del(reg.token)
	}

	b.thunkMu.Lock()
	delete(b.thunks, loop)
	delete(b.poisoned, loop)
	b.thunkMu.Unlock()

	b.log.Debug("loop torn down", slogx.Thread(uint64(loop.ThreadID())))
}

// Close shuts the bridge down: every installation is removed and further
// registrations and sends fail with ErrBridgeClosed. Loops keep running
// until their own Shutdown.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.handlers.ForEach(func(key uint64, reg *registration) bool {
		_ = b.eng.Remove(reg.class, reg.id)
		b.handlers.Del(key)
		b.byToken.Del(reg.token)
		return true
	})

	b.thunkMu.Lock()
	b.thunks = make(map[*Loop]engine.DispatchFunc)
	b.poisoned = make(map[*Loop]struct{})
	b.thunkMu.Unlock()
	return nil
}
