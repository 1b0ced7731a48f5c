// Package signal provides the typed in-process publish/subscribe bus that decouples
// the transport layer from the session store and the UI.
//
// # Delivery
//
// [Bus.Publish] delivers synchronously, in subscription order: first to handlers
// registered for the signal's [Kind], then to catch-all handlers. A panicking handler
// is recovered and logged; the remaining handlers still run.
//
// # Architecture boundaries
//
// This package owns signal identity (ID, timestamp) and fan-out. It does NOT decide
// when a signal is raised (transport) or how state reacts to it (session).
//
// # What this package must NOT do
//
//   - Keep package-level buses or handler registries.
//   - Import session, transport, or mkclient.
//   - Block Publish on external I/O; slow sinks go through [Dispatcher].
package signal
