// Package convert adapts between plain Go values and descriptors: building
// descriptor trees from strings, numbers, booleans, slices, and maps with
// the fixed type-code conventions (UTF-8 text, IEEE-754 double, single-byte
// boolean), projecting descriptors back to plain data with base64 for raw
// bytes, and serializing either direction through JSON.
//
// The package is a thin layer over aedesc and aebridge; the core never
// imports it.
package convert
