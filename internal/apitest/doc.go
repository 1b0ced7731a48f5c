// Package apitest runs an in-process backend speaking the monitoring API under the
// "/api" prefix. Tests and the load tool drive clients against it and use its knobs to
// provoke the responses a client must react to: expired tokens, suspended tenants,
// exhausted plans, brute-force lockouts and injected failures.
//
// Accounts live in memory with argon2id password hashes. Tokens are HS256 JWTs signed by
// token.Manager on the server clock, which tests can advance. Failed login attempts are
// counted in an embedded miniredis through internal/rate.
//
// # What this package must NOT do
//
//   - Be used in production. Nothing here is persistent.
//   - Share state between Server instances.
package apitest
