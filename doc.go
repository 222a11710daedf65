// Package goSession is the client-side session authority for the library
// catalog client: it obtains a bearer credential from the authentication
// endpoint, persists it, evaluates its expiry, and exposes one consistent
// authentication state to guards, outbound transports and views.
//
// One [Authority] exists per running client. It is assembled with [Builder],
// started once with [Authority.Start], and injected into the guard and transport
// packages. Its methods are safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Authority], [Builder], [Config],
// [State] and the [Endpoint]/[Navigator] collaborator interfaces. Flow
// orchestration, audit dispatch and metric storage live under internal/ and are
// never exported. Credential decoding lives in token/, persistence in store/.
//
// # What this package must NOT do
//
//   - Verify credential signatures; the server is the only verifier.
//   - Cache the credential; every decision point reads the store.
//   - Import guard, transport, middleware or endpoint (they import goSession).
//   - Log credential values.
package goSession
