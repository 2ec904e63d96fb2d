package aebridge

import (
	"github.com/osakit/aebridge/aedesc"
	"github.com/osakit/aebridge/pkg/fourcc"
)

// HandlerFunc is the callback registered for an (event class, event ID)
// pair. It always runs on the owning loop's thread. The event descriptor is
// owned by the dispatcher; replyExpected reports whether the sender asked
// for a reply.
//
// The returned Result must be NoReply, Fields, or Deferred. Anything else,
// and any returned error or panic, is downgraded to an error-parameters
// reply; nothing a handler does propagates into the facility.
type HandlerFunc func(event *aedesc.Descriptor, replyExpected bool) (Result, error)

// Result is what a handler produces.
type Result interface {
	isResult()
}

type noReply struct{}

func (noReply) isResult() {}

// NoReply is the explicit nothing-to-say result. It is valid only when no
// reply is expected; returning it for a reply-expected invocation is an
// error.
var NoReply Result = noReply{}

// Fields populates the reply descriptor with keyword/value pairs. The
// dispatcher copies the values in and closes them afterwards.
type Fields map[fourcc.Code]*aedesc.Descriptor

func (Fields) isResult() {}

// Deferred signals that the reply is not ready yet. The event is suspended
// and the eventual settlement of Future, raced against the event's timeout
// attribute, produces the reply. Future must settle to NoReply or Fields.
//
// The Future must settle eventually, even after the event's timeout has
// already answered the sender: a goroutine waits on it per suspension, and a
// future that never settles pins that goroutine for the life of the process.
type Deferred struct {
	Future Future[Result]
}

func (Deferred) isResult() {}
