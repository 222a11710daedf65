package transport

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

const bearerPrefix = "Bearer "

// BearerAuth attaches the stored credential to every request. When no
// credential is stored the request passes through unmodified. The caller's
// request is never mutated; a clone carries the header.
func BearerAuth(src TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if src == nil {
				return next.RoundTrip(r)
			}
			tok, ok := src.Token(r.Context())
			if !ok || tok == "" {
				return next.RoundTrip(r)
			}

			clone := r.Clone(r.Context())
			clone.Header.Set("Authorization", bearerPrefix+tok)
			incMetric(src, goSession.MetricRequestAugmented)
			return next.RoundTrip(clone)
		})
	}
}
