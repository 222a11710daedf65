// Package flows contains pure-function orchestrators for the endpoint-backed
// Authority operations: login, signup and profile refresh.
//
// Each flow function (RunLogin, RunSignup, RunRefresh) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. State transitions stay with the caller; a flow only validates
// input, calls the endpoint, checks the response and reports metrics/audit.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the authentication endpoint, the token
// codec, the audit dispatcher, and metrics. They do NOT own any of these
// resources; ownership stays with the Authority.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Touch the credential store or session state.
package flows
