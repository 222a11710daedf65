// Package prometheus exposes goSession metrics to Prometheus.
//
// [Exporter.Render] and [Exporter.Handler] write the text exposition format
// directly. [Exporter.Collector] returns a client_golang Collector for callers
// that already run a registry. Counter names are gosession_*_total; the single
// histogram is gosession_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate session state.
package prometheus
