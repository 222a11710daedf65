// Package transport augments outbound calls with the session credential.
//
// For net/http it provides RoundTripper middleware: [BearerAuth] attaches
// "Authorization: Bearer <token>" when a credential is stored, and
// [ExpiryDetector] ends the session when the server rejects an authenticated
// call. [NewClient] assembles the standard chain around a goSession.Authority.
// For gRPC the same behavior is available as client interceptors.
//
// Every stage reads the credential store at request time; nothing is cached.
package transport
