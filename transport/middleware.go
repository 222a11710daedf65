package transport

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// Middleware wraps a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base with mws. The first middleware listed sees the request
// first. A nil base uses http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			base = mws[i](base)
		}
	}
	return base
}

// TokenSource reads the current credential.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Expirer ends a session that the server no longer accepts.
type Expirer interface {
	ForcedExpiry(ctx context.Context, reason goSession.ExpiryReason)
}

// metricsSource is implemented by *goSession.Authority.
type metricsSource interface {
	Metrics() *goSession.Metrics
}

func incMetric(src any, id goSession.MetricID) {
	if ms, ok := src.(metricsSource); ok {
		if m := ms.Metrics(); m != nil {
			m.Inc(id)
		}
	}
}
