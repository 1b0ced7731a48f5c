// Package metrics holds the client's counters and its request latency histogram.
//
// Each counter lives in its own cache-line-sized slot and is bumped with a single
// atomic add, so concurrent requests never contend on a lock. Latency goes into eight
// fixed buckets, from 5ms up to +Inf. A disabled counter costs one bool check.
//
// Snapshot copies everything into plain values. The exporters under metrics/export
// read those copies and never touch the live slots.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import mkclient or any sibling package.
//   - Keep metrics in package-level state.
package metrics
