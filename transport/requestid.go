package transport

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
)

// HeaderRequestID carries the correlation ID.
const HeaderRequestID = "X-Request-Id"

// RequestID ensures every request carries X-Request-Id. An ID already on the
// header wins, then one attached with goSession.WithRequestID, then a fresh
// UUID. The ID is also placed on the request context so audit events raised
// further down the chain carry it.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = goSession.RequestIDFromContext(r.Context())
			}
			if id == "" {
				id = uuid.NewString()
			}

			ctx := goSession.WithRequestID(r.Context(), id)
			clone := r.Clone(ctx)
			clone.Header.Set(HeaderRequestID, id)
			return next.RoundTrip(clone)
		})
	}
}
