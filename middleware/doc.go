// Package middleware adapts the guard predicates to net/http handlers for a
// locally served catalog front-end.
//
//   - [RequireSession] admits requests only while a usable credential is
//     stored, otherwise redirects to the login path.
//   - [RequireAnonymous] keeps signed-in users off the login and signup pages,
//     redirecting them to the home path.
//
// # Architecture boundaries
//
// This package translates guard decisions into HTTP redirects. All decisions
// are delegated to guard.Guards.
//
// # What this package must NOT do
//
//   - Decode credentials (the guard and token packages do).
//   - Touch the credential store.
//   - Send the credential to the browser.
package middleware
