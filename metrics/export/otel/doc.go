// Package otel publishes goSession metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter, a gauge per
// cumulative latency bucket, and count and sum gauges. A single callback reads
// the Authority's snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate session state.
package otel
