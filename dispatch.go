package aebridge

import (
	"fmt"
	"time"

	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/oserr"
	"github.com/osakit/aebridge/pkg/slogx"
)

// dispatch is the shared thunk body the facility calls on an arbitrary
// delivering thread. It must always come back with a status; no panic and
// no error ever crosses into the facility.
func (b *Bridge) dispatch(event, reply *engine.Desc, refcon uint64, tid engine.ThreadID) int32 {
	// counted before the lookup: a delivery that has found its registration
	// must already be visible to Unhandle's busy check
	b.inflight.Add(1)
	defer b.inflight.Add(-1)

	reg, ok := b.byToken.Get(refcon)
	if !ok {
		b.log.Warn("dispatch for unregistered handler context", slogx.Thread(uint64(tid)))
		return b.errorReply(reply, oserr.New(oserr.ErrAEEventNotHandled, "no handler context for event"))
	}

	replyExpected := reply.Type() != engine.TypeNull
	info := newDispatchInfo(reg.class, reg.id, uint64(tid), replyExpected)
	b.hook.OnDispatch(info)

	var st int32
	if reg.loop.ThreadID() == tid {
		// already on the owning thread, no marshal
		st = b.invoke(reg, info, event, reply, replyExpected, tid)
	} else {
		st = b.marshalInvoke(reg, info, event, reply, replyExpected)
	}
	b.hook.OnReply(info, st)
	return st
}

// marshalInvoke queues the callback onto the owning loop and blocks the
// delivering thread until it completes, bounded by the event's timeout
// attribute. A timeout that fires before the callback has started cancels
// the queued call; once the callback is running it is waited out
// unconditionally, since it may already be writing into the reply buffer.
func (b *Bridge) marshalInvoke(reg *registration, info DispatchInfo, event, reply *engine.Desc, replyExpected bool) int32 {
	var st int32
	inv, err := reg.loop.submit(func() {
		st = b.invoke(reg, info, event, reply, replyExpected, reg.loop.ThreadID())
	})
	if err != nil {
		return b.errorReply(reply, oserr.New(oserr.ErrAEEventNotHandled, "owning loop terminated"))
	}

	if timeout := eventTimeout(event); timeout > 0 {
		t := b.clk.Timer(timeout)
		select {
		case <-inv.Done():
			t.Stop()
		case <-t.C:
			if inv.cancelIfNotStarted() {
				b.hook.OnTimeout(info)
				b.log.Warn("handler did not start within the event timeout",
					slogx.EventKey(reg.class, reg.id))
				return b.errorReply(reply, oserr.New(oserr.ErrAETimeout, "handler did not start within the event timeout"))
			}
			<-inv.Done()
		}
	} else {
		<-inv.Done()
	}

	if !inv.started() {
		// swept by loop shutdown before it could run
		return b.errorReply(reply, oserr.New(oserr.ErrAEEventNotHandled, "owning loop terminated"))
	}
	return st
}

// invoke runs the callback on the owning loop thread and folds its result
// into the reply.
func (b *Bridge) invoke(reg *registration, info DispatchInfo, event, reply *engine.Desc, replyExpected bool, tid engine.ThreadID) int32 {
	raw, st := event.Duplicate()
	if st != oserr.NoErr {
		return b.errorReply(reply, oserr.New(st, "AEDuplicateDesc failed"))
	}
	wrapped := aedesc.Adopt(raw)

	res, err := safeInvoke(reg.fn, wrapped, replyExpected)
	_ = wrapped.Close()
	if err != nil {
		b.hook.OnHandlerError(info, err)
		b.log.Warn("handler failed", slogx.EventKey(reg.class, reg.id), slogx.Error(err))
		return b.errorReply(reply, err)
	}

	if deferred, ok := res.(Deferred); ok {
		return b.suspend(reg, info, event, reply, deferred.Future, tid)
	}
	return b.writeResult(info, res, reply, replyExpected)
}

// safeInvoke keeps handler panics on this side of the facility boundary.
func safeInvoke(fn HandlerFunc, event *aedesc.Descriptor, replyExpected bool) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aebridge: handler panicked: %v", r)
		}
	}()
	return fn(event, replyExpected)
}

// writeResult folds a settled handler result (NoReply or Fields) into the
// reply buffer. Malformed results become error-parameter replies.
func (b *Bridge) writeResult(info DispatchInfo, res Result, reply *engine.Desc, replyExpected bool) int32 {
	switch r := res.(type) {
	case noReply:
		if replyExpected {
			err := oserr.New(oserr.ErrAEReplyNotValid, "handler returned no reply for a reply-expected event")
			b.hook.OnHandlerError(info, err)
			return b.errorReply(reply, err)
		}
		return oserr.NoErr

	case Fields:
		if err := b.writeFields(reply, r); err != nil {
			b.hook.OnHandlerError(info, err)
			return b.errorReply(reply, err)
		}
		return oserr.NoErr

	default:
		err := fmt.Errorf("aebridge: handler returned unsupported result %T", res)
		b.hook.OnHandlerError(info, err)
		return b.errorReply(reply, err)
	}
}

// writeFields copies the handler's reply fields into the reply buffer and
// closes them.
func (b *Bridge) writeFields(reply *engine.Desc, fields Fields) error {
	defer func() {
		for _, v := range fields {
			if v != nil {
				_ = v.Close()
			}
		}
	}()
	for key, v := range fields {
		if v == nil {
			return fmt.Errorf("aebridge: nil reply field %q", key.String())
		}
		if st := reply.PutField(key, v.Raw()); st != oserr.NoErr {
			return oserr.New(st, fmt.Sprintf("AEPutParamDesc failed for %q", key.String()))
		}
	}
	return nil
}

// errorReply flattens err into the reply's error parameters: the error
// number, the error string, and the abbreviated error string. When the
// sender asked for no reply there is nothing to write into, so the status
// code itself goes back to the facility.
func (b *Bridge) errorReply(reply *engine.Desc, err error) int32 {
	code := oserr.CodeOf(err)
	if reply == nil || reply.Type() == engine.TypeNull {
		return code
	}

	num := engine.NewInt32(code)
	_ = reply.PutField(engine.KeyErrorNumber, num)
	_ = num.Dispose()

	str := engine.NewData(engine.TypeUTF8Text, []byte(err.Error()))
	_ = reply.PutField(engine.KeyErrorString, str)
	_ = str.Dispose()

	brief, _ := oserr.Resolve(code)
	bd := engine.NewData(engine.TypeUTF8Text, []byte(brief))
	_ = reply.PutField(engine.KeyErrorBrief, bd)
	_ = bd.Dispose()

	return oserr.NoErr
}

// eventTimeout reads the event's timeout attribute, converting OS ticks
// (60 per second) to a duration. Absent, unreadable, zero, or negative
// means wait indefinitely.
func eventTimeout(ev *engine.Desc) time.Duration {
	attr, st := ev.Attr(engine.KeyTimeoutAttr)
	if st != oserr.NoErr {
		return 0
	}
	ticks, st := engine.Int32Value(attr)
	_ = attr.Dispose()
	if st != oserr.NoErr || ticks <= 0 {
		return 0
	}
	return time.Duration(ticks) * time.Second / 60
}
