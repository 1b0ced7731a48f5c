// Package storage provides the durable client-side key-value storage that backs the
// session store: an in-memory map, a JSON file on disk (optionally sealed with a
// passphrase), and a Redis namespace for clients that share a session across
// processes.
//
// Storage is an advisory cache, not a transactional requirement: a missing key is
// reported as absent, never as an error, and callers treat write failures as
// best-effort.
//
// # What this package must NOT do
//
//   - Interpret token contents or session semantics (see session).
//   - Surface undecodable on-disk state as a read error.
package storage
