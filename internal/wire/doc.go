// Package wire implements the byte-level encoding shared by the bridge and
// the viewer: fixed-size primitives in host byte order, length-prefixed
// strings and byte buffers, and blocking Composer/Decoder retry loops over a
// stream socket.
//
// Ownership boundary:
// - primitive and length-prefixed field encoding
// - short-write/short-read retry against a deadline-capable connection
//
// Message kinds and per-kind field schemas live in internal/protocol.
package wire
