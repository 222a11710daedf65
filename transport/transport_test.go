package transport_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/transport"
	"github.com/stretchr/testify/require"
)

// liveToken decodes and carries no exp, so it never expires.
const liveToken = "eyJhbGciOiJIUzI1NiJ9.eyJ1c2VySWQiOiIxIn0.sig"

type staticToken string

func (s staticToken) Token(context.Context) (string, bool) {
	return string(s), s != ""
}

type countingExpirer struct {
	mu      sync.Mutex
	reasons []goSession.ExpiryReason
}

func (c *countingExpirer) ForcedExpiry(_ context.Context, reason goSession.ExpiryReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

func (c *countingExpirer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reasons)
}

type capture struct {
	mu      sync.Mutex
	headers []http.Header
	status  int
}

func (c *capture) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.headers = append(c.headers, r.Header.Clone())
	status := c.status
	c.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{StatusCode: status, Body: http.NoBody, Header: http.Header{}, Request: r}, nil
}

func (c *capture) last() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers[len(c.headers)-1]
}

// newAuthority returns a started Authority; a non-empty token seeds a session.
func newAuthority(t *testing.T, token string) *goSession.Authority {
	t.Helper()
	cs, err := store.NewCredentialStore(store.NewMemoryKV(), store.NewMemoryKV())
	require.NoError(t, err)
	if token != "" {
		require.NoError(t, cs.Persist(context.Background(), store.ScopeDurable, token, store.Profile{ID: "1", Email: "a@b.com", Role: "User"}))
	}

	cfg := goSession.DefaultConfig()
	cfg.Store.Backend = goSession.BackendMemory
	a, err := goSession.New().WithConfig(cfg).WithStore(cs).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Start(context.Background()))
	return a
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://catalog.test/api/books", nil)
	require.NoError(t, err)
	return req
}

func TestChainOrder(t *testing.T) {
	var order []string
	stage := func(name string) transport.Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return transport.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	rt := transport.Chain(&capture{}, stage("a"), nil, stage("b"), stage("c"))
	_, err := rt.RoundTrip(newRequest(t))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBearerAuthAttachesOnlyWithToken(t *testing.T) {
	base := &capture{}

	req := newRequest(t)
	_, err := transport.Chain(base, transport.BearerAuth(staticToken("h.e.s"))).RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, "Bearer h.e.s", base.last().Get("Authorization"))
	require.Empty(t, req.Header.Get("Authorization"), "caller request must not be mutated")

	_, err = transport.Chain(base, transport.BearerAuth(staticToken(""))).RoundTrip(newRequest(t))
	require.NoError(t, err)
	require.Empty(t, base.last().Get("Authorization"))
}

func TestBearerHeaderFollowsSessionState(t *testing.T) {
	a := newAuthority(t, liveToken)
	base := &capture{}
	rt := transport.Chain(base, transport.BearerAuth(a))

	_, err := rt.RoundTrip(newRequest(t))
	require.NoError(t, err)
	require.Equal(t, "Bearer "+liveToken, base.last().Get("Authorization"))
	require.EqualValues(t, 1, a.MetricsSnapshot().Counters[goSession.MetricRequestAugmented])

	require.NoError(t, a.Logout(context.Background(), false))
	_, err = rt.RoundTrip(newRequest(t))
	require.NoError(t, err)
	require.Empty(t, base.last().Get("Authorization"))
}

func TestUnauthorizedForcesExactlyOneExpiry(t *testing.T) {
	exp := &countingExpirer{}
	base := &capture{status: http.StatusUnauthorized}
	rt := transport.Chain(base, transport.BearerAuth(staticToken("h.e.s")), transport.ExpiryDetector(exp))

	resp, err := rt.RoundTrip(newRequest(t))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, exp.count())
	require.Equal(t, goSession.ReasonRejected, exp.reasons[0])
}

func TestUnauthorizedExpiresAuthority(t *testing.T) {
	a := newAuthority(t, liveToken)
	require.True(t, a.IsAuthenticated())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := transport.NewClient(a)
	resp, err := client.Get(srv.URL + "/api/books")
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.False(t, a.IsAuthenticated())
	snap := a.MetricsSnapshot()
	require.EqualValues(t, 1, snap.Counters[goSession.MetricForcedExpiry])
	require.EqualValues(t, 1, snap.Counters[goSession.MetricForcedExpiryRejected])
}

func TestAnonymousRejectionLeavesSignedOutSession(t *testing.T) {
	a := newAuthority(t, "")
	require.False(t, a.IsAuthenticated())

	authz := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := transport.NewClient(a).Get(srv.URL + "/api/auth/login")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Empty(t, <-authz)

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.False(t, a.IsAuthenticated())
	require.Zero(t, a.MetricsSnapshot().Counters[goSession.MetricForcedExpiry])
}

func TestExpiryDetectorIgnoresAnonymousAndOtherStatuses(t *testing.T) {
	exp := &countingExpirer{}

	anon := transport.Chain(&capture{status: http.StatusUnauthorized}, transport.ExpiryDetector(exp))
	_, err := anon.RoundTrip(newRequest(t))
	require.NoError(t, err)

	forbidden := transport.Chain(&capture{status: http.StatusForbidden},
		transport.BearerAuth(staticToken("t")), transport.ExpiryDetector(exp))
	_, err = forbidden.RoundTrip(newRequest(t))
	require.NoError(t, err)

	require.Zero(t, exp.count())

	custom := transport.Chain(&capture{status: http.StatusForbidden},
		transport.BearerAuth(staticToken("t")), transport.ExpiryDetector(exp, http.StatusUnauthorized, http.StatusForbidden))
	_, err = custom.RoundTrip(newRequest(t))
	require.NoError(t, err)
	require.Equal(t, 1, exp.count())
}

func TestExpiryDetectorPassesErrorsThrough(t *testing.T) {
	exp := &countingExpirer{}
	boom := errors.New("connection reset")
	failing := transport.RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom })

	_, err := transport.Chain(failing, transport.BearerAuth(staticToken("t")), transport.ExpiryDetector(exp)).RoundTrip(newRequest(t))
	require.ErrorIs(t, err, boom)
	require.Zero(t, exp.count())
}

func TestRequestIDPrecedence(t *testing.T) {
	base := &capture{}
	rt := transport.Chain(base, transport.RequestID())

	_, err := rt.RoundTrip(newRequest(t))
	require.NoError(t, err)
	generated := base.last().Get(transport.HeaderRequestID)
	require.Len(t, generated, 36)

	req := newRequest(t).WithContext(goSession.WithRequestID(context.Background(), "ctx-id"))
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, "ctx-id", base.last().Get(transport.HeaderRequestID))

	req = newRequest(t)
	req.Header.Set(transport.HeaderRequestID, "hdr-id")
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, "hdr-id", base.last().Get(transport.HeaderRequestID))
}

func TestLoggingNeverWritesCredential(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rt := transport.Chain(&capture{}, transport.BearerAuth(staticToken("secret.token.value")), transport.Logging(logger))
	_, err := rt.RoundTrip(newRequest(t))
	require.NoError(t, err)

	require.Contains(t, buf.String(), `"path":"/api/books"`)
	require.Contains(t, buf.String(), `"authenticated":true`)
	require.NotContains(t, buf.String(), "secret.token.value")
}
