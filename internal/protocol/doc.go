// Package protocol owns the closed message catalog of the bridge<->viewer
// link.
//
// Ownership boundary:
// - message kind and element type discriminants
// - payload shapes and per-kind equality predicates
// - one encode/decode pair per kind
//
// A frame is a kind discriminant followed by its fixed field schema; no
// outer length or checksum wraps it. Reading the wrong schema for a kind
// desyncs the stream permanently, so decode call sites must go through this
// package rather than drive internal/wire directly.
package protocol
