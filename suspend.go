package aebridge

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/oserr"
	"github.com/osakit/aebridge/pkg/slogx"
	"github.com/osakit/aebridge/pkg/uuidx"
)

// suspension tracks one suspended event across an arbitrary future
// computation: the continuation token, the suspending thread identity, and
// the duplicated reply buffer the settlement writes into.
type suspension struct {
	token   uuid.UUID
	reg     *registration
	info    DispatchInfo
	event   *engine.Desc // the facility's event; its identity keys the resume
	reply   *engine.Desc // duplicated reply, owned here until resumed
	tid     engine.ThreadID
	settled atomic.Bool
}

// suspend detaches the event from its delivering thread so the reply can be
// produced when fut settles. It runs on the owning loop thread; the
// recorded thread identity gates the eventual resume, because the facility
// is thread-affine for that call. The event's timeout attribute races the
// settlement.
func (b *Bridge) suspend(reg *registration, info DispatchInfo, event, reply *engine.Desc, fut Future[Result], tid engine.ThreadID) int32 {
	if fut == nil {
		err := errors.New("aebridge: deferred result without a future")
		b.hook.OnHandlerError(info, err)
		return b.errorReply(reply, err)
	}

	replyDup, st := reply.Duplicate()
	if st != oserr.NoErr {
		err := oserr.New(st, "AEDuplicateDesc failed")
		b.hook.OnHandlerError(info, err)
		return b.errorReply(reply, err)
	}
	if st := b.eng.Suspend(event, tid); st != oserr.NoErr {
		_ = replyDup.Dispose()
		err := oserr.New(st, "AESuspendTheCurrentEvent failed")
		b.hook.OnHandlerError(info, err)
		return b.errorReply(reply, err)
	}

	s := &suspension{token: uuidx.New(), reg: reg, info: info, event: event, reply: replyDup, tid: tid}
	b.log.Debug("event suspended",
		slogx.EventKey(reg.class, reg.id),
		slog.String("token", s.token.String()),
		slogx.Thread(uint64(tid)))

	// the invocation stays in flight until the suspension settles
	b.inflight.Add(1)

	timeout := eventTimeout(event)
	if timeout > 0 {
		timer := b.clk.AfterFunc(timeout, func() {
			b.settle(s, nil, oserr.New(oserr.ErrAETimeout, "suspended event timed out before the reply settled"))
		})
		go func() {
			res, err := fut.Get()
			timer.Stop()
			b.settle(s, res, err)
		}()
	} else {
		go func() {
			res, err := fut.Get()
			b.settle(s, res, err)
		}()
	}
	return oserr.NoErr
}

// settle runs at most once per suspension, then marshals the resume back
// onto the owning loop. If execution is no longer on the suspending thread
// by then, the resume is skipped and the reply abandoned; that is logged
// and surfaced through the hook, never raised.
func (b *Bridge) settle(s *suspension, res Result, err error) {
	if !s.settled.CompareAndSwap(false, true) {
		return
	}
	postErr := s.reg.loop.Post(func() {
		defer b.inflight.Add(-1)

		cur := s.reg.loop.ThreadID()
		if cur != s.tid {
			b.skipResume(s, cur)
			return
		}
		b.finishReply(s, res, err)
		if st := b.eng.Resume(s.event, s.reply, cur); st != oserr.NoErr {
			// nobody is waiting on this event anymore
			b.log.Warn("resume failed",
				slog.String("token", s.token.String()),
				slogx.OSStatus(st))
			_ = s.reply.Dispose()
		}
	})
	if postErr != nil {
		b.inflight.Add(-1)
		b.skipResume(s, 0)
	}
}

// finishReply folds the settlement into the duplicated reply buffer.
func (b *Bridge) finishReply(s *suspension, res Result, err error) {
	replyExpected := s.reply.Type() != engine.TypeNull
	if err != nil {
		if oserr.IsTimeout(err) {
			b.hook.OnTimeout(s.info)
			b.log.Warn("suspended event timed out",
				slogx.EventKey(s.reg.class, s.reg.id),
				slog.String("token", s.token.String()))
		} else {
			b.hook.OnHandlerError(s.info, err)
		}
		_ = b.errorReply(s.reply, err)
		return
	}
	if _, nested := res.(Deferred); nested {
		nerr := errors.New("aebridge: deferred result settled to another deferred")
		b.hook.OnHandlerError(s.info, nerr)
		_ = b.errorReply(s.reply, nerr)
		return
	}
	_ = b.writeResult(s.info, res, s.reply, replyExpected)
}

func (b *Bridge) skipResume(s *suspension, cur engine.ThreadID) {
	b.log.Warn("skipping resume, suspending thread no longer current",
		slogx.EventKey(s.reg.class, s.reg.id),
		slog.String("token", s.token.String()),
		slogx.Thread(uint64(s.tid)),
		slog.Uint64("current", uint64(cur)))
	b.hook.OnResumeSkipped(s.info, uint64(s.tid), uint64(cur))
	_ = s.reply.Dispose()
}
