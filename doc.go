// Package mkclient is a client for the router-monitoring API whose session state
// follows what the backend says about it.
//
// A [Client] owns one session. Every request goes through a classifying transport that
// injects the current bearer token and turns error responses into signals: a
// definitive 401 expires the session, a 402 sends the user to the subscription page
// or raises an upsell, and a 403/423 carrying a tenant status records it. Signals
// are published on an in-process bus the session store is bound to, so UI code only
// subscribes and renders.
//
// Clients are assembled with [Builder] and are safe for concurrent use after
// [Builder.Build].
//
// # Architecture boundaries
//
// mkclient is the public surface. It exposes [Client], [Builder], [Config] and value
// types aliased from its sub-packages. The session store (session), classifier
// (transport), bus (signal), storage backends (storage) and REST resources (api) are
// usable on their own.
//
// # What this package must NOT do
//
//   - Render anything. Presentation reacts to signals and session snapshots.
//   - Validate token signatures. The backend is the authority; claims are read unverified.
//   - Import any sub-package that re-imports mkclient (no import cycles).
package mkclient
