// Package authstub is an in-process stand-in for the library catalog
// authentication service. It serves /auth/login, /auth/signup and /auth/me,
// mints HS256 credentials and stores argon2id password hashes in memory.
// With Config.Throttle set, failed logins are counted per email in Redis and
// answered 429 once the budget is spent.
//
// It exists for tests and the stub-server example and is not a reference
// server implementation.
package authstub
