// Package stdx holds small generic helpers with no better home.
package stdx

// Must0 panics if the provided error is not nil. For call sites where an
// error is impossible by construction.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, panicking if err is not nil.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
