// Package token decodes bearer credentials issued by the library authentication
// endpoint and answers expiry questions about them.
//
// # Credential format
//
// A credential is a compact string of base64url segments joined by ".". Only the
// payload segment (the second one) is interpreted; it must decode to a JSON object
// that may carry exp, userId, email, username, and role claims.
//
// # Architecture boundaries
//
// This package never verifies signatures. Signature checks belong to the issuing
// server; the client only needs the expiry instant and the embedded identity hints.
//
// # What this package must NOT do
//
//   - Perform I/O or read the credential store.
//   - Return a partially decoded payload: decoding either succeeds or fails with
//     [ErrMalformed].
//   - Panic on arbitrary input.
package token
