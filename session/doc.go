// Package session holds the client-side authenticated identity: bearer token, role,
// tenant payment status, the readiness flag used to gate dependent requests, and the
// expired-session flag raised by the transport.
//
// # Lifecycle
//
// A [Store] is constructed once per process and restored from durable storage with
// [Store.Initialize], which migrates legacy token keys first. It is mutated only by its
// own operations ([Store.Login], [Store.Logout], [Store.MarkExpired],
// [Store.SetTenantStatus], [Store.AdoptToken]) and by the signal handlers installed with
// [Store.Bind], which translate bus signals into those same operations.
//
// # Consistency
//
// Readers always observe either the complete state before a mutation or the complete
// state after it. Every mutation of token, role or tenant status is written through to
// storage before the mutating call returns; storage failures are logged and never
// surfaced, because storage is an advisory cache.
//
// # Architecture boundaries
//
// This package owns the [Session] model and [Store]. It does NOT classify HTTP
// responses (see transport) or talk to the backend directly: credentials are exchanged
// by an [Authenticator].
//
// # What this package must NOT do
//
//   - Import the root package, transport or api (no upward imports).
//   - Log bearer tokens or secrets.
//   - Surface storage errors from operations other than Login.
package session
