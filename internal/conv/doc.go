// Package conv provides safe integer type conversion utilities.
//
// Dataset files store dimensions and identifiers as int32. These functions
// check bounds before narrowing so that an oversized value is reported
// instead of silently wrapping on disk.
package conv
