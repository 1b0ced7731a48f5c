// Package prometheus exposes mkclient metrics to Prometheus.
//
// [NewExporter] wraps a [mkclient.Client] (or any [MetricsSource]) in a collector that
// reads the client's snapshot on each scrape. Counter names are mkclient_*_total and the
// request latency histogram is mkclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the Handler or
//     register the Exporter themselves.
//   - Mutate client state.
package prometheus
