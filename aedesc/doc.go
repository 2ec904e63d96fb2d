// Package aedesc wraps native Apple Event descriptors in a managed object
// model with exclusive ownership.
//
// A Descriptor owns exactly one native payload for its lifetime. Every way
// of producing a descriptor — the constructors, As coercion, Clone, or
// wrapping a payload that crossed the boundary — yields a new,
// independently owned payload; two Descriptors never alias the same native
// handle. Close releases the payload exactly once, with a finalizer as the
// safety net for wrappers that are dropped without closing.
//
// The concrete variant (null, data, list, record, event, or the unknown
// fallback) is decided by classifying the native payload, not by trusting
// the type tag: the tag doubles as a sub-type discriminant for data
// descriptors and may be a custom subtype for lists and records.
//
// Accessors project the native payload on every call. Repeated access
// returns structurally equal, never identical, child descriptors.
package aedesc
