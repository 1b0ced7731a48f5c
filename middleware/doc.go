// Package middleware holds the HTTP plumbing shared by the client and the test backend:
// RoundTripper decorators for outgoing requests and a bearer-token guard for handlers.
//
// # Client side
//
//   - [Chain] composes [Middleware] around a base RoundTripper.
//   - [RequestID] stamps X-Request-ID.
//   - [UserAgent] sets the User-Agent header.
//   - [Logging] writes one debug line per round trip with the bearer masked.
//
// # Server side
//
// [Guard] reads the Authorization header, verifies it with a [Verifier] and stores the
// claims in the request context. Expired tokens are answered with the backend's
// `{"reason":"expired"}` body so clients can tell expiry from an invalid token.
//
// # What this package must NOT do
//
//   - Classify responses or publish signals (see transport).
//   - Log bearer tokens unmasked.
package middleware
