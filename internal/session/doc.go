// Package session owns the bridge side of the debugger<->viewer link.
//
// Ownership boundary:
// - socket lifecycle: listen, viewer launch, accept, close
// - per-kind receive queues with dedup-then-append-then-trim insertion
// - fire-and-forget sends, blocking fetch, read pump, periodic event loop
//
// One mutex serializes every public operation; a Session is safe to expose
// to concurrently-callable entry points but never runs two socket/queue
// operations at once.
package session
