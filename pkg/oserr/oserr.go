// Package oserr maps Apple Event Manager status codes to structured errors.
//
// Every native call in this repository reports an OSStatus-style int32. The
// boundary that observes a nonzero status wraps it with New, attaching the
// call-site context; the resolved human-readable string and optional comment
// come from a static table of the Apple Event Manager error range.
package oserr

import (
	"errors"
	"fmt"
)

// NoErr is the success status.
const NoErr int32 = 0

// Apple Event Manager status codes (the -1700 range), plus the OSA general
// error used when a handler fails for a reason that has no dedicated code.
const (
	ErrAECoercionFail        int32 = -1700
	ErrAEDescNotFound        int32 = -1701
	ErrAECorruptData         int32 = -1702
	ErrAEWrongDataType       int32 = -1703
	ErrAENotAEDesc           int32 = -1704
	ErrAEBadListItem         int32 = -1705
	ErrAENewerVersion        int32 = -1706
	ErrAENotAppleEvent       int32 = -1707
	ErrAEEventNotHandled     int32 = -1708
	ErrAEReplyNotValid       int32 = -1709
	ErrAEUnknownSendMode     int32 = -1710
	ErrAEWaitCanceled        int32 = -1711
	ErrAETimeout             int32 = -1712
	ErrAENoUserInteraction   int32 = -1713
	ErrAENotASpecialFunction int32 = -1714
	ErrAEParamMissed         int32 = -1715
	ErrAEUnknownAddressType  int32 = -1716
	ErrAEHandlerNotFound     int32 = -1717
	ErrAEReplyNotArrived     int32 = -1718
	ErrAEIllegalIndex        int32 = -1719
	ErrOSAGeneralError       int32 = -2700
)

type entry struct {
	message string
	comment string
}

var table = map[int32]entry{
	ErrAECoercionFail:        {"coercion failure", "data could not be coerced to the requested descriptor type"},
	ErrAEDescNotFound:        {"descriptor not found", ""},
	ErrAECorruptData:         {"corrupt data", ""},
	ErrAEWrongDataType:       {"wrong data type", ""},
	ErrAENotAEDesc:           {"not a descriptor", "the value is not a valid Apple event descriptor"},
	ErrAEBadListItem:         {"bad list item", "the specified list item does not exist"},
	ErrAENewerVersion:        {"newer version required", ""},
	ErrAENotAppleEvent:       {"not an Apple event", "the descriptor is not a full Apple event"},
	ErrAEEventNotHandled:     {"event not handled", "no handler is registered for this event"},
	ErrAEReplyNotValid:       {"reply not valid", ""},
	ErrAEUnknownSendMode:     {"unknown send mode", ""},
	ErrAEWaitCanceled:        {"wait canceled", "the user canceled while waiting for a reply"},
	ErrAETimeout:             {"timed out", "the event was not handled within the timeout"},
	ErrAENoUserInteraction:   {"no user interaction allowed", ""},
	ErrAENotASpecialFunction: {"not a special function", ""},
	ErrAEParamMissed:         {"missing required parameter", ""},
	ErrAEUnknownAddressType:  {"unknown address type", ""},
	ErrAEHandlerNotFound:     {"handler not found", "no handler is installed for this event class and ID"},
	ErrAEReplyNotArrived:     {"reply has not arrived", ""},
	ErrAEIllegalIndex:        {"illegal index", "the index is out of range"},
	ErrOSAGeneralError:       {"general scripting error", ""},
}

// Resolve returns the human-readable string and optional comment for a
// status code. Unknown codes resolve to a generic message with no comment.
func Resolve(code int32) (message, comment string) {
	if e, ok := table[code]; ok {
		return e.message, e.comment
	}
	return "unrecognized status", ""
}

// OSError is a native status code enriched with the context of the call that
// reported it.
type OSError struct {
	Code    int32
	Context string
}

// New builds an OSError for a nonzero status.
func New(code int32, context string) *OSError {
	return &OSError{Code: code, Context: context}
}

func (e *OSError) Error() string {
	message, comment := Resolve(e.Code)
	if comment != "" {
		return fmt.Sprintf("%s [%s (%s)] (code: %d)", e.Context, message, comment, e.Code)
	}
	return fmt.Sprintf("%s [%s] (code: %d)", e.Context, message, e.Code)
}

// Timeout reports whether the status is the Apple Event Manager timeout.
func (e *OSError) Timeout() bool { return e.Code == ErrAETimeout }

// Is makes errors.Is match two OSErrors by code, regardless of context.
func (e *OSError) Is(target error) bool {
	var other *OSError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// IsTimeout reports whether err wraps a timeout status. Timeouts are their
// own error kind: dispatch converts them to timeout replies and the send
// path rejects with them, and callers routinely branch on the distinction.
func IsTimeout(err error) bool {
	var oe *OSError
	return errors.As(err, &oe) && oe.Timeout()
}

// CodeOf extracts the status code from an error chain, or ErrOSAGeneralError
// when the error does not carry one. Used when a handler failure has to be
// flattened into the reply's error-number parameter.
func CodeOf(err error) int32 {
	var oe *OSError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ErrOSAGeneralError
}
