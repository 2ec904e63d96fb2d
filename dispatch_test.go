package aebridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

func newReplyBuffer() *engine.Desc {
	return engine.NewAppleEvent(engine.ClassCore, engine.IDAnswer, nil, 0, 0)
}

func replyErrn(t *testing.T, reply *engine.Desc) int32 {
	t.Helper()
	field, st := reply.Field(engine.KeyErrorNumber)
	require.Equal(t, oserr.NoErr, st, "reply has no error-number parameter")
	defer func() { _ = field.Dispose() }()
	code, st := engine.Int32Value(field)
	require.Equal(t, oserr.NoErr, st)
	return code
}

func replyParam(t *testing.T, reply *aedesc.Descriptor, key fourcc.Code) *aedesc.Descriptor {
	t.Helper()
	params, err := reply.Parameters()
	require.NoError(t, err)
	var found *aedesc.Descriptor
	for _, f := range params {
		if f.Key == key {
			found = f.Value
		}
	}
	require.NotNil(t, found, "reply missing parameter %s", key.String())
	return found
}

func TestDispatchUnregisteredContext(t *testing.T) {
	b, loop := newTestBridge(t)
	class, id := fourcc.MustParse("TEST"), fourcc.MustParse("PING")
	require.NoError(t, b.Handle(loop, class, id, echoHandler))

	// the installation survives but its handler context is gone
	reg, ok := b.handlers.Get(engine.PackKey(class, id))
	require.True(t, ok)
	b.byToken.Del(reg.token)

	ev := testEvent(t, "TEST", "PING")
	defer func() { _ = ev.Close() }()
	reply := newReplyBuffer()
	defer func() { _ = reply.Dispose() }()

	st := b.eng.Deliver(ev.Raw(), reply, b.eng.NextThread())
	assert.Equal(t, oserr.NoErr, st, "an error reply, never a thrown status")
	assert.Equal(t, oserr.ErrAEEventNotHandled, replyErrn(t, reply))

	// the miss path releases its in-flight count
	assert.Zero(t, b.inflight.Load())
}

func TestHandlerErrorBecomesErrorReply(t *testing.T) {
	hook := &recordingHook{}
	b, loop := newTestBridge(t, WithHook(hook))
	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("FAIL"),
		func(*aedesc.Descriptor, bool) (Result, error) {
			return nil, errors.New("database is on fire")
		}))

	ev := testEvent(t, "TEST", "FAIL")
	defer func() { _ = ev.Close() }()

	fut, err := b.Send(context.Background(), ev, true)
	require.NoError(t, err)
	reply, err := fut.Get()
	require.NoError(t, err)
	defer func() { _ = reply.Close() }()

	num := replyParam(t, reply, aedesc.KeyErrorNumber)
	code, err := aedesc.Int32Value(num)
	require.NoError(t, err)
	assert.Equal(t, oserr.ErrOSAGeneralError, code)

	msg := replyParam(t, reply, aedesc.KeyErrorString)
	text, err := aedesc.TextValue(msg)
	require.NoError(t, err)
	assert.Contains(t, text, "database is on fire")

	_, errs, _, _ := hook.snapshot()
	assert.NotZero(t, errs)
}

func TestHandlerPanicIsContained(t *testing.T) {
	b, loop := newTestBridge(t)
	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("BOOM"),
		func(*aedesc.Descriptor, bool) (Result, error) {
			panic("kaboom")
		}))

	ev := testEvent(t, "TEST", "BOOM")
	defer func() { _ = ev.Close() }()

	// no reply expected: the dispatcher still completes, the panic surfaces
	// only as a status to the sender
	fut, err := b.Send(context.Background(), ev, false)
	require.NoError(t, err)
	_, err = fut.Get()
	require.Error(t, err)
	assert.Equal(t, oserr.ErrOSAGeneralError, oserr.CodeOf(err))
	assert.Contains(t, err.Error(), "AESendMessage failed")
}

func TestNoReplyForReplyExpectedEvent(t *testing.T) {
	b, loop := newTestBridge(t)
	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("MUTE"),
		func(*aedesc.Descriptor, bool) (Result, error) {
			return NoReply, nil
		}))

	ev := testEvent(t, "TEST", "MUTE")
	defer func() { _ = ev.Close() }()

	fut, err := b.Send(context.Background(), ev, true)
	require.NoError(t, err)
	reply, err := fut.Get()
	require.NoError(t, err)
	defer func() { _ = reply.Close() }()

	num := replyParam(t, reply, aedesc.KeyErrorNumber)
	code, err := aedesc.Int32Value(num)
	require.NoError(t, err)
	assert.Equal(t, oserr.ErrAEReplyNotValid, code)
}

func TestTimeoutBeforeHandlerStarts(t *testing.T) {
	mock := clock.NewMock()
	hook := &recordingHook{}
	b, loop := newTestBridge(t, WithClock(mock), WithHook(hook))
	waitForThread(t, loop)

	ran := false
	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("SLOW"),
		func(*aedesc.Descriptor, bool) (Result, error) {
			ran = true
			return NoReply, nil
		}))

	// jam the loop so the queued invocation cannot start
	gate := make(chan struct{})
	require.NoError(t, loop.Post(func() { <-gate }))
	defer close(gate)

	ev, err := aedesc.NewEvent(aedesc.EventSpec{
		Class: fourcc.MustParse("TEST"),
		ID:    fourcc.MustParse("SLOW"),
		Attrs: []aedesc.Field{{Key: aedesc.KeyTimeoutAttr, Value: aedesc.Int32(60)}}, // 1s
	})
	require.NoError(t, err)
	defer func() { _ = ev.Close() }()

	reply := newReplyBuffer()
	defer func() { _ = reply.Dispose() }()

	done := make(chan int32, 1)
	go func() {
		done <- b.eng.Deliver(ev.Raw(), reply, b.eng.NextThread())
	}()

	time.Sleep(100 * time.Millisecond) // let dispatch reach its timer
	mock.Add(2 * time.Second)

	select {
	case st := <-done:
		assert.Equal(t, oserr.NoErr, st)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after the timeout fired")
	}

	assert.Equal(t, oserr.ErrAETimeout, replyErrn(t, reply))
	assert.False(t, ran, "cancelled invocation must not run")
	_, _, timeouts, _ := hook.snapshot()
	assert.NotZero(t, timeouts)
}

func TestStartedHandlerIsWaitedOut(t *testing.T) {
	mock := clock.NewMock()
	b, loop := newTestBridge(t, WithClock(mock))
	waitForThread(t, loop)

	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("BUSY"),
		func(_ *aedesc.Descriptor, _ bool) (Result, error) {
			close(entered)
			<-release
			return Fields{aedesc.KeyDirectObject: aedesc.Text("finished")}, nil
		}))

	ev, err := aedesc.NewEvent(aedesc.EventSpec{
		Class: fourcc.MustParse("TEST"),
		ID:    fourcc.MustParse("BUSY"),
		Attrs: []aedesc.Field{{Key: aedesc.KeyTimeoutAttr, Value: aedesc.Int32(60)}},
	})
	require.NoError(t, err)
	defer func() { _ = ev.Close() }()

	reply := newReplyBuffer()
	defer func() { _ = reply.Dispose() }()

	done := make(chan int32, 1)
	go func() {
		done <- b.eng.Deliver(ev.Raw(), reply, b.eng.NextThread())
	}()

	<-entered
	mock.Add(2 * time.Second) // past the event timeout, handler already running
	close(release)

	require.Equal(t, oserr.NoErr, <-done)

	// the real result arrives, not a timeout error
	field, st := reply.Field(engine.KeyDirectObject)
	require.Equal(t, oserr.NoErr, st)
	data, st := field.Data()
	require.Equal(t, oserr.NoErr, st)
	assert.Equal(t, "finished", string(data))
	_ = field.Dispose()

	_, st = reply.Field(engine.KeyErrorNumber)
	assert.Equal(t, oserr.ErrAEDescNotFound, st)
}

func TestSameThreadFastPath(t *testing.T) {
	b, loop := newTestBridge(t)
	waitForThread(t, loop)

	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("FAST"),
		func(_ *aedesc.Descriptor, _ bool) (Result, error) {
			return Fields{aedesc.KeyDirectObject: aedesc.Text("inline")}, nil
		}))

	// jam the loop: a marshaled call could not run, so completing proves
	// the same-thread path invoked inline
	gate := make(chan struct{})
	require.NoError(t, loop.Post(func() { <-gate }))
	defer close(gate)

	ev := testEvent(t, "TEST", "FAST")
	defer func() { _ = ev.Close() }()
	reply := newReplyBuffer()
	defer func() { _ = reply.Dispose() }()

	st := b.eng.Deliver(ev.Raw(), reply, loop.ThreadID())
	require.Equal(t, oserr.NoErr, st)

	field, fst := reply.Field(engine.KeyDirectObject)
	require.Equal(t, oserr.NoErr, fst)
	data, dst := field.Data()
	require.Equal(t, oserr.NoErr, dst)
	assert.Equal(t, "inline", string(data))
	_ = field.Dispose()
}

func TestEndToEndEcho(t *testing.T) {
	b, loop := newTestBridge(t)
	require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("PING"), echoHandler))

	ev := testEvent(t, "TEST", "PING",
		aedesc.Field{Key: aedesc.KeyDirectObject, Value: aedesc.Text("hi")})
	defer func() { _ = ev.Close() }()

	fut, err := b.Send(context.Background(), ev, true)
	require.NoError(t, err)
	reply, err := fut.Get()
	require.NoError(t, err)
	require.NotNil(t, reply)
	defer func() { _ = reply.Close() }()

	direct := replyParam(t, reply, aedesc.KeyDirectObject)
	text, err := aedesc.TextValue(direct)
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "hi"))

	// the caller's event survived the send untouched
	assert.Equal(t, aedesc.KindEvent, ev.Kind())
	params, err := ev.Parameters()
	require.NoError(t, err)
	assert.Len(t, params, 1)
}

func TestConcurrentKeysNoCrossTalk(t *testing.T) {
	b, loop := newTestBridge(t)

	for _, k := range []struct{ id, answer string }{{"AAAA", "alpha"}, {"BBBB", "bravo"}} {
		answer := k.answer
		require.NoError(t, b.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse(k.id),
			func(_ *aedesc.Descriptor, _ bool) (Result, error) {
				return Fields{aedesc.KeyDirectObject: aedesc.Text(answer)}, nil
			}))
	}

	type outcome struct {
		id    string
		reply *engine.Desc
		st    int32
	}
	results := make(chan outcome, 2)
	for _, id := range []string{"AAAA", "BBBB"} {
		id := id
		ev := testEvent(t, "TEST", id)
		defer func() { _ = ev.Close() }()
		go func() {
			reply := newReplyBuffer()
			st := b.eng.Deliver(ev.Raw(), reply, b.eng.NextThread())
			results <- outcome{id: id, reply: reply, st: st}
		}()
	}

	want := map[string]string{"AAAA": "alpha", "BBBB": "bravo"}
	for i := 0; i < 2; i++ {
		out := <-results
		require.Equal(t, oserr.NoErr, out.st)
		field, st := out.reply.Field(engine.KeyDirectObject)
		require.Equal(t, oserr.NoErr, st)
		data, st := field.Data()
		require.Equal(t, oserr.NoErr, st)
		assert.Equal(t, want[out.id], string(data))
		_ = field.Dispose()
		_ = out.reply.Dispose()
	}
}
