package aebridge

import "errors"

// Protocol-state errors. These are reported synchronously and never retried
// automatically; callers are expected to defer and retry where that makes
// sense (ErrHandlerBusy in particular).
var (
	// ErrAlreadyRegistered is returned by Handle when a handler already
	// exists for the (event class, event ID) key. There is no silent replace.
	ErrAlreadyRegistered = errors.New("aebridge: handler already registered for this event key")

	// ErrFacilityUnavailable is returned by Handle when the owning loop is
	// poisoned: its dispatch thunk or teardown hook could not be set up, and
	// every later registration attempt fails fast until the loop is torn down.
	ErrFacilityUnavailable = errors.New("aebridge: event facility unavailable for this loop")

	// ErrHandlerBusy is returned by Unhandle while handler invocations are in
	// flight. Removing an installation under a live invocation could race a
	// callback still writing into the shared reply buffer.
	ErrHandlerBusy = errors.New("aebridge: handler invocations in flight")

	// ErrLoopTerminated is returned when work is posted to a loop that has
	// shut down.
	ErrLoopTerminated = errors.New("aebridge: run loop terminated")

	// ErrBridgeClosed is returned by operations on a closed bridge.
	ErrBridgeClosed = errors.New("aebridge: bridge closed")

	// ErrNotAnEvent is returned synchronously by Send when the descriptor is
	// not of the Event kind.
	ErrNotAnEvent = errors.New("aebridge: descriptor is not an event")
)
