package aebridge

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fogfish/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/internal/engine"
	"github.com/osakit/aebridge/pkg/fourcc"
	"github.com/osakit/aebridge/pkg/oserr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHook counts dispatch lifecycle notifications for assertions.
type recordingHook struct {
	mu         sync.Mutex
	dispatches int
	replies    int
	errs       int
	timeouts   int
	skips      int
	lastErr    error
}

func (h *recordingHook) OnDispatch(DispatchInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatches++
}

func (h *recordingHook) OnReply(DispatchInfo, int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replies++
}

func (h *recordingHook) OnHandlerError(_ DispatchInfo, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs++
	h.lastErr = err
}

func (h *recordingHook) OnTimeout(DispatchInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeouts++
}

func (h *recordingHook) OnResumeSkipped(DispatchInfo, uint64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skips++
}

func (h *recordingHook) snapshot() (dispatches, errs, timeouts, skips int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dispatches, h.errs, h.timeouts, h.skips
}

func newTestBridge(t *testing.T, options ...opts.Option[Bridge]) (*Bridge, *Loop) {
	t.Helper()
	options = append([]opts.Option[Bridge]{WithLogger(testLogger())}, options...)
	b, err := New(options...)
	require.NoError(t, err)

	loop := b.NewLoop()
	go func() { _ = loop.Run() }()
	t.Cleanup(func() {
		loop.Shutdown()
		loop.Wait()
		_ = b.Close()
	})
	return b, loop
}

func testEvent(t *testing.T, class, id string, fields ...aedesc.Field) *aedesc.Descriptor {
	t.Helper()
	ev, err := aedesc.NewEvent(aedesc.EventSpec{
		Class:  fourcc.MustParse(class),
		ID:     fourcc.MustParse(id),
		Params: fields,
	})
	require.NoError(t, err)
	return ev
}

func echoHandler(event *aedesc.Descriptor, replyExpected bool) (Result, error) {
	if !replyExpected {
		return NoReply, nil
	}
	params, err := event.Parameters()
	if err != nil {
		return nil, err
	}
	out := Fields{}
	for _, f := range params {
		clone, err := f.Value.Clone()
		if err != nil {
			return nil, err
		}
		out[f.Key] = clone
	}
	return out, nil
}

func waitForThread(t *testing.T, loop *Loop) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for loop.ThreadID() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never bound a thread")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHandleDuplicateKey(t *testing.T) {
	b, loop := newTestBridge(t)
	class, id := fourcc.MustParse("TEST"), fourcc.MustParse("PING")

	require.NoError(t, b.Handle(loop, class, id, echoHandler))
	assert.ErrorIs(t, b.Handle(loop, class, id, echoHandler), ErrAlreadyRegistered)

	require.NoError(t, b.Unhandle(class, id))
	assert.NoError(t, b.Handle(loop, class, id, echoHandler))
}

func TestUnhandleAbsentIsNoop(t *testing.T) {
	b, _ := newTestBridge(t)
	assert.NoError(t, b.Unhandle(fourcc.MustParse("none"), fourcc.MustParse("none")))
}

func TestHandleArgumentErrors(t *testing.T) {
	b, loop := newTestBridge(t)
	class, id := fourcc.MustParse("TEST"), fourcc.MustParse("PING")

	assert.Error(t, b.Handle(nil, class, id, echoHandler))
	assert.Error(t, b.Handle(loop, 0, id, echoHandler))
	assert.Error(t, b.Handle(loop, class, 0, echoHandler))
	assert.Error(t, b.Handle(loop, class, id, nil))
}

func TestHandlePoisonedLoop(t *testing.T) {
	b, _ := newTestBridge(t)
	class, id := fourcc.MustParse("TEST"), fourcc.MustParse("PING")

	dead := b.NewLoop()
	dead.Shutdown()
	dead.Wait()

	assert.ErrorIs(t, b.Handle(dead, class, id, echoHandler), ErrFacilityUnavailable)
	// the loop stays poisoned; later attempts fail fast
	assert.ErrorIs(t, b.Handle(dead, class, id, echoHandler), ErrFacilityUnavailable)
}

func TestUnhandleWhileInFlight(t *testing.T) {
	b, loop := newTestBridge(t)
	class, id := fourcc.MustParse("TEST"), fourcc.MustParse("PING")

	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, b.Handle(loop, class, id, func(*aedesc.Descriptor, bool) (Result, error) {
		close(entered)
		<-release
		return NoReply, nil
	}))

	ev := testEvent(t, "TEST", "PING")
	defer func() { _ = ev.Close() }()
	reply := engine.NewNull()
	defer func() { _ = reply.Dispose() }()

	done := make(chan int32, 1)
	go func() {
		done <- b.eng.Deliver(ev.Raw(), reply, b.eng.NextThread())
	}()

	<-entered
	assert.ErrorIs(t, b.Unhandle(class, id), ErrHandlerBusy)

	close(release)
	assert.Equal(t, oserr.NoErr, <-done)
	assert.NoError(t, b.Unhandle(class, id))
}

func TestLoopTeardownSweepsRegistrations(t *testing.T) {
	b, _ := newTestBridge(t)

	loop := b.NewLoop()
	go func() { _ = loop.Run() }()
	waitForThread(t, loop)

	keys := [][2]string{{"TEST", "PING"}, {"TEST", "PONG"}}
	for _, k := range keys {
		require.NoError(t, b.Handle(loop, fourcc.MustParse(k[0]), fourcc.MustParse(k[1]), echoHandler))
	}

	loop.Shutdown()
	loop.Wait()

	// the installations are gone from the facility
	for _, k := range keys {
		ev := testEvent(t, k[0], k[1])
		reply := engine.NewNull()
		st := b.eng.Deliver(ev.Raw(), reply, b.eng.NextThread())
		assert.Equal(t, oserr.ErrAEEventNotHandled, st)
		_ = ev.Close()
		_ = reply.Dispose()
	}

	// and the keys are free for a fresh loop
	fresh := b.NewLoop()
	go func() { _ = fresh.Run() }()
	defer func() {
		fresh.Shutdown()
		fresh.Wait()
	}()
	for _, k := range keys {
		assert.NoError(t, b.Handle(fresh, fourcc.MustParse(k[0]), fourcc.MustParse(k[1]), echoHandler))
	}
}

func TestClosedBridge(t *testing.T) {
	b, loop := newTestBridge(t)
	class, id := fourcc.MustParse("TEST"), fourcc.MustParse("PING")
	require.NoError(t, b.Handle(loop, class, id, echoHandler))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Handle(loop, class, id, echoHandler), ErrBridgeClosed)
	assert.ErrorIs(t, b.Unhandle(class, id), ErrBridgeClosed)

	ev := testEvent(t, "TEST", "PING")
	defer func() { _ = ev.Close() }()
	_, err := b.Send(context.Background(), ev, true)
	assert.ErrorIs(t, err, ErrBridgeClosed)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AEBRIDGE_SEND_TIMEOUT", "250ms")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.SendTimeout)
}

func TestWithConfigRejectsNegativeTimeout(t *testing.T) {
	_, err := New(WithConfig(Config{SendTimeout: -time.Second}))
	assert.Error(t, err)
}
