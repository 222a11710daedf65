package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/store"
	"github.com/stretchr/testify/require"
)

// liveToken decodes and carries no exp.
const liveToken = "eyJhbGciOiJIUzI1NiJ9.eyJ1c2VySWQiOiIxIn0.sig"

func newGuards(t *testing.T, signedIn bool) *guard.Guards {
	t.Helper()
	cs, err := store.NewCredentialStore(store.NewMemoryKV(), store.NewMemoryKV())
	require.NoError(t, err)
	if signedIn {
		require.NoError(t, cs.Persist(context.Background(), store.ScopeDurable, liveToken,
			store.Profile{ID: "1", Username: "reader", Role: "User"}))
	}

	cfg := goSession.DefaultConfig()
	cfg.Store.Backend = goSession.BackendMemory
	a, err := goSession.New().WithConfig(cfg).WithStore(cs).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Start(context.Background()))
	return guard.New(a)
}

func okHandler(t *testing.T, wantUser bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := middleware.UserFromContext(r.Context())
		require.Equal(t, wantUser, ok)
		if ok {
			require.Equal(t, "reader", u.Username)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRequireSession(t *testing.T) {
	anon := middleware.RequireSession(newGuards(t, false), nil)(okHandler(t, true))
	rec := serve(anon, "/books")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	signed := middleware.RequireSession(newGuards(t, true), nil)(okHandler(t, true))
	require.Equal(t, http.StatusOK, serve(signed, "/books").Code)
}

func TestRequireAnonymous(t *testing.T) {
	signed := middleware.RequireAnonymous(newGuards(t, true), middleware.Paths{goSession.ViewHome: "/catalog"})(okHandler(t, false))
	rec := serve(signed, "/login")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/catalog", rec.Header().Get("Location"))

	anon := middleware.RequireAnonymous(newGuards(t, false), nil)(okHandler(t, false))
	require.Equal(t, http.StatusOK, serve(anon, "/login").Code)
}

func TestMissingRedirectPathIsForbidden(t *testing.T) {
	h := middleware.RequireSession(newGuards(t, false), middleware.Paths{})(okHandler(t, false))
	require.Equal(t, http.StatusForbidden, serve(h, "/books").Code)
}

func TestNilGuards(t *testing.T) {
	h := middleware.RequireSession(nil, nil)(okHandler(t, false))
	require.Equal(t, http.StatusServiceUnavailable, serve(h, "/books").Code)
}
