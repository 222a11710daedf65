// Package store persists the session credential and user profile across two
// independent lifetimes.
//
// # Scopes
//
// The durable scope survives application restarts and is authoritative for the
// credential and profile. The ephemeral scope lives only for the current run and
// holds the derived user ID consulted by read-mostly collaborators. Each scope is
// its own [KV] instance; the two are never multiplexed onto one backend with key
// prefixes, so clearing both on logout stays explicit.
//
// # Backends
//
//   - [MemoryKV]: process-lifetime map, the usual ephemeral scope.
//   - [FileKV]: JSON document on disk (0600), the default durable scope for CLIs.
//   - [RedisKV]: Redis strings under a key prefix.
//   - [SQLiteKV]: single-table SQLite database.
//
// # What this package must NOT do
//
//   - Import goSession or interpret credential contents.
//   - Cache reads: every Get goes to the backend so writes are visible immediately.
package store
