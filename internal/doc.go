// Package internal groups the helpers that stay private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - authstub: in-memory authentication API used by tests and examples
//   - flows: the login, signup, refresh and startup sequences
//   - metrics: lock-free counters and latency histograms
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
