package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/facebookgo/clock"

	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
	"github.com/osakit/aebridge/pkg/slogx"
)

// DispatchFunc is the thunk shape the facility calls back into: the incoming
// event, the shared reply buffer, the opaque token supplied at installation,
// and the identity of the delivering thread. The returned status goes back
// to the sender.
type DispatchFunc func(event, reply *Desc, refcon uint64, tid ThreadID) int32

type installation struct {
	class  fourcc.Code
	id     fourcc.Code
	fn     DispatchFunc
	refcon uint64
}

// PackKey packs an (event class, event ID) pair into a single map key.
func PackKey(class, id fourcc.Code) uint64 {
	return uint64(class)<<32 | uint64(id)
}

type resumeMsg struct {
	reply  *Desc
	status int32
}

type suspendState struct {
	tid     ThreadID
	ch      chan resumeMsg
	resumed bool
}

// Engine is the process-local event facility. Deliveries happen on
// goroutines the engine labels with fresh ThreadIDs, standing in for the
// arbitrary OS threads the real manager uses.
type Engine struct {
	clk      clock.Clock
	log      *slog.Logger
	installs *haxmap.Map[uint64, *installation]
	threads  atomic.Uint64

	mu        sync.Mutex
	suspended map[*Desc]*suspendState
}

func New(clk clock.Clock, log *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		clk:       clk,
		log:       log.With(slogx.LoggerName("engine")),
		installs:  haxmap.New[uint64, *installation](),
		suspended: map[*Desc]*suspendState{},
	}
}

// NextThread allocates a fresh thread identity. Run loops bind one at
// startup; Send allocates one per delivery.
func (e *Engine) NextThread() ThreadID {
	return ThreadID(e.threads.Add(1))
}

// Install registers fn as the handler thunk for the key, replacing any
// previous installation, the way AEInstallEventHandler does. Registration
// discipline (no silent replace) is the bridge's job, not the facility's.
func (e *Engine) Install(class, id fourcc.Code, fn DispatchFunc, refcon uint64) int32 {
	if class.IsZero() || id.IsZero() || fn == nil {
		return oserr.ErrAENotASpecialFunction
	}
	e.installs.Set(PackKey(class, id), &installation{class: class, id: id, fn: fn, refcon: refcon})
	return oserr.NoErr
}

// Remove drops the installation for the key.
func (e *Engine) Remove(class, id fourcc.Code) int32 {
	key := PackKey(class, id)
	if _, ok := e.installs.Get(key); !ok {
		return oserr.ErrAEHandlerNotFound
	}
	e.installs.Del(key)
	return oserr.NoErr
}

// Deliver synchronously invokes the installed thunk for the event's key on
// the calling goroutine, labeled tid. Used by Send and directly by tests
// that simulate deliveries on chosen threads.
func (e *Engine) Deliver(ev, reply *Desc, tid ThreadID) int32 {
	class, st := ev.Class()
	if st != oserr.NoErr {
		return st
	}
	id, st := ev.ID()
	if st != oserr.NoErr {
		return st
	}
	inst, ok := e.installs.Get(PackKey(class, id))
	if !ok {
		return oserr.ErrAEEventNotHandled
	}
	return inst.fn(ev, reply, inst.refcon, tid)
}

// Send routes an event to its installed handler and blocks until the reply
// arrives, the handler fails, or the timeout elapses. A timeout <= 0 waits
// indefinitely. On success with expectReply the returned reply descriptor is
// owned by the caller; otherwise the reply is nil.
//
// The delivery runs on its own goroutine with a fresh ThreadID. If the
// handler suspends the event, Send keeps waiting for the resumed reply.
func (e *Engine) Send(ev *Desc, expectReply bool, timeout time.Duration) (*Desc, int32) {
	if ev == nil || ev.event == nil || !ev.live() {
		return nil, oserr.ErrAENotAppleEvent
	}

	var reply *Desc
	if expectReply {
		reply = NewAppleEvent(ClassCore, IDAnswer, nil, 0, 0)
	} else {
		reply = NewNull()
	}

	done := make(chan resumeMsg, 1)
	tid := e.NextThread()
	go func() {
		st := e.Deliver(ev, reply, tid)

		// A suspension, if any, was recorded during Deliver and only this
		// side removes it, so the lookup cannot miss a resume that already
		// happened.
		e.mu.Lock()
		ss := e.suspended[ev]
		e.mu.Unlock()
		if st == oserr.NoErr && ss != nil {
			// the handler detached the event; the finished reply comes
			// through the resume call
			msg := <-ss.ch
			e.mu.Lock()
			if e.suspended[ev] == ss {
				delete(e.suspended, ev)
			}
			e.mu.Unlock()
			_ = reply.Dispose()
			done <- msg
			return
		}
		done <- resumeMsg{reply: reply, status: st}
	}()

	var msg resumeMsg
	if timeout > 0 {
		t := e.clk.Timer(timeout)
		select {
		case msg = <-done:
			t.Stop()
		case <-t.C:
			e.log.Warn("send timed out waiting for reply", slogx.OSStatus(oserr.ErrAETimeout))
			return nil, oserr.ErrAETimeout
		}
	} else {
		msg = <-done
	}

	if msg.status != oserr.NoErr {
		if msg.reply != nil {
			_ = msg.reply.Dispose()
		}
		return nil, msg.status
	}
	if !expectReply {
		if msg.reply != nil {
			_ = msg.reply.Dispose()
		}
		return nil, oserr.NoErr
	}
	return msg.reply, oserr.NoErr
}

// Suspend detaches the event from its delivering thread. The dispatch that
// received it returns without a reply; the sender keeps waiting until Resume
// delivers the finished reply. The suspending thread identity is recorded:
// the facility is thread-affine for resumption.
func (e *Engine) Suspend(ev *Desc, tid ThreadID) int32 {
	if !ev.live() || ev.event == nil {
		return oserr.ErrAENotAppleEvent
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.suspended[ev]; ok {
		return oserr.ErrAEReplyNotValid
	}
	e.suspended[ev] = &suspendState{tid: tid, ch: make(chan resumeMsg, 1)}
	return oserr.NoErr
}

// SuspendedThread reports the thread that suspended ev, if it is suspended.
func (e *Engine) SuspendedThread(ev *Desc) (ThreadID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ss, ok := e.suspended[ev]
	if !ok || ss.resumed {
		return 0, false
	}
	return ss.tid, true
}

// Resume reattaches a suspended event and delivers reply to the blocked
// sender. It must be called on the thread that suspended the event; the
// reply's ownership transfers to the sender. The suspension record stays in
// place for the sender to consume: removing it here could race the sender's
// post-delivery lookup and strand the finished reply.
func (e *Engine) Resume(ev, reply *Desc, tid ThreadID) int32 {
	e.mu.Lock()
	ss, ok := e.suspended[ev]
	if ok && ss.resumed {
		ok = false
	}
	wrongTID := ok && ss.tid != tid
	if ok && !wrongTID {
		ss.resumed = true
	}
	e.mu.Unlock()

	if !ok {
		return oserr.ErrAEDescNotFound
	}
	if wrongTID {
		e.log.Warn("resume refused on wrong thread", slogx.Thread(uint64(tid)))
		return oserr.ErrAEReplyNotValid
	}
	ss.ch <- resumeMsg{reply: reply, status: oserr.NoErr}
	return oserr.NoErr
}
