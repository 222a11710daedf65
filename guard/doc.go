// Package guard decides whether a view may be entered.
//
// [Guards.Protected] admits only a stored, unexpired credential and ends the
// session otherwise. [Guards.AntiProtected] keeps signed-in users away from the
// login and signup views. Both are plain predicates with no framework
// dependency; package middleware adapts them to net/http.
package guard
