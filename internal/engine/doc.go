// Package engine implements Apple Event Manager semantics as an in-process
// facility: a handle-owned descriptor store, type coercion, handler
// installation and dispatch on simulated OS threads, in-process event
// sends with replies and timeouts, and the suspend/resume protocol.
//
// The OS wire format is deliberately not reimplemented; the engine models
// the manager's observable behavior so the bridge and its tests run on any
// platform. Descriptors are single-owner values: every *Desc is owned by
// exactly one wrapper or one engine operation at a time, duplication is
// always a deep copy, and disposal releases a descriptor exactly once.
package engine
