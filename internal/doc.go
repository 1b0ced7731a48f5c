// Package internal groups helpers that are private to mkclient.
//
// # Sub-packages
//
//   - apitest: in-process fake of the monitoring backend for tests and the sandbox
//   - credential: argon2id password hashing used by the fake backend
//   - logx: slog construction and secret masking
//   - metrics: lock-free counters and the request latency histogram
//   - rate: Redis-backed failed-attempt limiter used for login lockout
//
// # What this package must NOT do
//
//   - Export types that appear in the public mkclient API.
//   - Be imported by any package outside the mkclient module.
package internal
