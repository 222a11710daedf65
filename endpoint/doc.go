// Package endpoint is the HTTP client for the library catalog authentication
// service. [Client] implements goSession.Endpoint.
//
// Non-success answers become *goSession.RejectedError carrying the message the
// server supplied, or a fixed fallback when it supplied none. A 401 on the
// profile call is marked as a session expiry.
package endpoint
