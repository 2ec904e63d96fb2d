// Package uuidx generates the v7 UUIDs the bridge uses for suspension
// tokens and dispatch identifiers. v7 keeps tokens time-ordered, which makes
// log output of long-running suspensions easy to correlate.
package uuidx

import "github.com/google/uuid"

// New returns a fresh v7 UUID. It panics if the system entropy source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh v7 UUID in canonical string form.
func NewString() string {
	return New().String()
}
