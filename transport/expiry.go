package transport

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// ExpiryDetector forces session expiry when a request that carried a bearer
// credential is answered with one of statuses (401 when none are given). The
// response and error are returned unchanged.
//
// Only requests that left with an Authorization header count. A rejection of
// an anonymous request, such as a login with a wrong password, says nothing
// about a stored credential and records no ForcedExpiry. Since such a request
// is only sent while no credential is stored, the session is already
// unauthenticated and the terminal state is the same either way; only the
// forced-expiry counters differ.
func ExpiryDetector(exp Expirer, statuses ...int) Middleware {
	if len(statuses) == 0 {
		statuses = []int{http.StatusUnauthorized}
	}
	reject := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		reject[s] = struct{}{}
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if exp == nil || resp == nil {
				return resp, err
			}
			if _, hit := reject[resp.StatusCode]; !hit {
				return resp, err
			}
			if r.Header.Get("Authorization") == "" {
				return resp, err
			}
			exp.ForcedExpiry(r.Context(), goSession.ReasonRejected)
			return resp, err
		})
	}
}
