/*
Package aebridge bridges application code to an Apple Events style
inter-process messaging facility: sending events to other applications and
receiving, handling, and replying to events sent to this one.

The package is built around a few core pieces:

  - Bridge (bridge.go): owns the facility and the process-wide registries
    around it, with explicit lifecycle instead of ambient globals
  - Loop (loop.go): an owning execution context, the single thread all
    handler callbacks for that context run on
  - Dispatch (dispatch.go): thread-affinity-aware invocation that marshals
    deliveries from arbitrary facility threads onto the owning loop
  - Suspension (suspend.go): detaching an in-flight event so its reply can
    be produced asynchronously and resumed later
  - Futures (future.go): the asynchronous result plumbing shared by Send
    and deferred handler replies

# Basic usage

Create a bridge, give it a loop to run callbacks on, and register handlers
by (event class, event ID) pair:

	bridge, err := aebridge.New(aebridge.WithLogger(logger))
	if err != nil {
		// handle error
	}

	loop := bridge.NewLoop()
	go loop.Run()

	err = bridge.Handle(loop, fourcc.MustParse("TEST"), fourcc.MustParse("PING"),
		func(event *aedesc.Descriptor, replyExpected bool) (aebridge.Result, error) {
			if !replyExpected {
				return aebridge.NoReply, nil
			}
			return aebridge.Fields{
				aedesc.KeyDirectObject: aedesc.Text("pong"),
			}, nil
		})

Sending is asynchronous; the returned future settles with the reply
descriptor:

	fut, err := bridge.Send(ctx, event, true)
	if err != nil {
		// handle error
	}
	reply, err := fut.Get()

# Handler results

A handler returns NoReply when it has nothing to say, Fields to populate
the reply, or Deferred when the reply depends on work that has not finished
yet. A Deferred result suspends the event; when its future settles the
finished reply is resumed on the thread that suspended it. Handler panics,
errors, and malformed results never cross into the facility; they are
downgraded to error-parameter replies.

Descriptor construction and inspection live in the aedesc package;
FourCharCode parsing in pkg/fourcc; status-code mapping in pkg/oserr. The
convert package layers plain-Go-value and JSON conversions on top.
*/
package aebridge
