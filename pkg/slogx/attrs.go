// Package slogx provides slog attribute helpers for the identifiers this
// repository logs constantly: errors, event keys, OS status codes, and
// simulated thread identities.
package slogx

import (
	"log/slog"

	"github.com/osakit/aebridge/pkg/fourcc"
)

// Error returns a slog.Attr with key "error" and the error's message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// EventKey returns an attribute rendering an (event class, event ID) pair in
// its textual "clas/evid" form.
func EventKey(class, id fourcc.Code) slog.Attr {
	return slog.String("event", class.String()+"/"+id.String())
}

// Keyword returns an attribute for a single FourCharCode keyword.
func Keyword(key string, code fourcc.Code) slog.Attr {
	return slog.String(key, code.String())
}

// OSStatus returns an attribute for a native status code.
func OSStatus(code int32) slog.Attr {
	return slog.Int("osstatus", int(code))
}

// Thread returns an attribute for a delivering-thread identity.
func Thread(id uint64) slog.Attr {
	return slog.Uint64("thread", id)
}

// KeyLoggerName is the key for the logger name attribute.
const KeyLoggerName = "logger"

// LoggerName returns the logger name attribute used to tell the bridge's
// subsystems apart in shared output.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
