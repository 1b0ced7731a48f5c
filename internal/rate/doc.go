// Package rate counts failed attempts per scope and identity in fixed Redis windows.
// The test backend uses it to answer brute-force login and registration bursts with
// 429, the way the production backend does.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit. Keys are "<prefix>:<scope>:<identity>".
//
// # What this package must NOT do
//
//   - Decide HTTP responses. Callers map ErrRateLimited to a status.
//   - Be imported outside the mkclient module.
package rate
