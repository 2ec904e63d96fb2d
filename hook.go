package aebridge

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/osakit/aebridge/pkg/fourcc"
)

// DispatchInfo identifies one handler invocation for observability hooks.
type DispatchInfo struct {
	Class         fourcc.Code
	ID            fourcc.Code
	Thread        uint64
	ReplyExpected bool
	Timestamp     strfmt.DateTime
}

// Hook receives dispatch lifecycle notifications. Implementations must be
// safe for concurrent use; dispatch calls them from delivering threads and
// loop threads alike. All methods are best-effort tracing: returning is the
// only thing a hook can do, dispatch outcomes are already decided.
type Hook interface {
	// OnDispatch fires when an event reaches a registered handler, before
	// the callback runs.
	OnDispatch(DispatchInfo)
	// OnReply fires when dispatch hands its status back to the facility.
	OnReply(DispatchInfo, int32)
	// OnHandlerError fires when a callback failure is downgraded to an
	// error-parameters reply.
	OnHandlerError(DispatchInfo, error)
	// OnTimeout fires when a queued invocation or a suspended reply ran out
	// of the event's timeout budget.
	OnTimeout(DispatchInfo)
	// OnResumeSkipped fires when a suspended event could not be resumed
	// because execution was no longer on the suspending thread. The reply is
	// abandoned; this is logged, never raised.
	OnResumeSkipped(DispatchInfo, uint64, uint64)
}

func newDispatchInfo(class, id fourcc.Code, thread uint64, replyExpected bool) DispatchInfo {
	return DispatchInfo{
		Class:         class,
		ID:            id,
		Thread:        thread,
		ReplyExpected: replyExpected,
		Timestamp:     strfmt.DateTime(time.Now()),
	}
}

// NoopHook discards every notification. It is the default.
type NoopHook struct{}

func (NoopHook) OnDispatch(DispatchInfo)                      {}
func (NoopHook) OnReply(DispatchInfo, int32)                  {}
func (NoopHook) OnHandlerError(DispatchInfo, error)           {}
func (NoopHook) OnTimeout(DispatchInfo)                       {}
func (NoopHook) OnResumeSkipped(DispatchInfo, uint64, uint64) {}
