package aebridge

import (
	"context"
	"fmt"

	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/pkg/oserr"
)

// Send dispatches an event to the facility and returns a future that
// settles with the reply, or with nil when expectReply is false. The
// blocking facility call runs off the calling goroutine; cancelling ctx
// rejects the future without waiting for the round trip.
//
// The event must be of the Event kind; anything else fails synchronously
// with ErrNotAnEvent before any asynchronous work begins. The event is
// cloned, so the caller's descriptor stays valid and independently owned.
func (b *Bridge) Send(ctx context.Context, event *aedesc.Descriptor, expectReply bool) (Future[*aedesc.Descriptor], error) {
	if b.closed.Load() {
		return nil, ErrBridgeClosed
	}
	if event == nil || event.Kind() != aedesc.KindEvent {
		return nil, ErrNotAnEvent
	}
	dup, err := event.Clone()
	if err != nil {
		return nil, err
	}

	fut := NewFuture[*aedesc.Descriptor]()
	stop := context.AfterFunc(ctx, func() {
		fut.Error(fmt.Errorf("aebridge: send canceled: %w", context.Cause(ctx)))
	})
	go func() {
		defer stop()
		defer func() { _ = dup.Close() }()

		reply, st := b.eng.Send(dup.Raw(), expectReply, b.cfg.SendTimeout)
		switch {
		case st != oserr.NoErr:
			fut.Error(oserr.New(st, "AESendMessage failed"))
		case !expectReply || reply == nil:
			fut.Complete(nil)
		default:
			// if cancellation won the race the wrapper is never retrieved;
			// its finalizer releases the payload
			fut.Complete(aedesc.Adopt(reply))
		}
	}()
	return fut, nil
}
