// Package transport attaches the session's bearer token to outgoing requests and turns
// backend error responses into bus signals.
//
// [Transport] is an [net/http.RoundTripper]. Each response outside 2xx is classified in
// a fixed order: a 401 is an expired session, an expected credential failure, a
// pre-login call or a startup race (retried once); a 402 navigates to the subscription
// page or raises an upsell; a 403 or 423 carrying a tenant status reports it. Responses
// are always handed back to the caller with their body intact, so the caller still sees
// its own request fail.
//
// # What this package must NOT do
//
//   - Mutate the session directly. State changes travel as signals.
//   - Classify responses of cancelled requests.
//   - Retry anything other than the single startup-race 401.
package transport
