package guard_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func credential(t *testing.T, exp time.Time) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"userId": "1", "role": "User", "exp": exp.Unix()})
	require.NoError(t, err)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

type navLog struct {
	mu    sync.Mutex
	views []goSession.View
}

func (n *navLog) Navigate(_ context.Context, v goSession.View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views = append(n.views, v)
}

type fixture struct {
	authority *goSession.Authority
	durable   *store.MemoryKV
	nav       *navLog
	guards    *guard.Guards
}

func newFixture(t *testing.T, stored string) *fixture {
	t.Helper()
	durable := store.NewMemoryKV()
	cs, err := store.NewCredentialStore(durable, store.NewMemoryKV())
	require.NoError(t, err)
	if stored != "" {
		require.NoError(t, cs.Persist(context.Background(), store.ScopeDurable, stored, store.Profile{ID: "1", Role: "User"}))
	}

	cfg := goSession.DefaultConfig()
	cfg.Store.Backend = goSession.BackendMemory
	nav := &navLog{}
	a, err := goSession.New().
		WithConfig(cfg).
		WithStore(cs).
		WithNavigator(nav).
		WithClock(func() time.Time { return now }).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Start(context.Background()))

	return &fixture{authority: a, durable: durable, nav: nav, guards: guard.New(a)}
}

func TestNoCredential(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	require.Equal(t, guard.Decision{Allow: true}, f.guards.AntiProtected(ctx))

	d := f.guards.Protected(ctx)
	require.False(t, d.Allow)
	require.Equal(t, goSession.ViewLogin, d.Redirect)
	require.Equal(t, []goSession.View{goSession.ViewLogin}, f.nav.views)
}

func TestValidCredential(t *testing.T) {
	f := newFixture(t, credential(t, now.Add(time.Hour)))
	ctx := context.Background()

	require.Equal(t, guard.Decision{Allow: true}, f.guards.Protected(ctx))

	d := f.guards.AntiProtected(ctx)
	require.False(t, d.Allow)
	require.Equal(t, goSession.ViewHome, d.Redirect)
	require.Equal(t, []goSession.View{goSession.ViewHome}, f.nav.views)

	snap := f.authority.MetricsSnapshot()
	require.EqualValues(t, 1, snap.Counters[goSession.MetricGuardAllow])
	require.EqualValues(t, 1, snap.Counters[goSession.MetricGuardDeny])
}

func TestProtectedIgnoresCachedStatus(t *testing.T) {
	f := newFixture(t, credential(t, now.Add(time.Hour)))
	ctx := context.Background()
	require.True(t, f.authority.IsAuthenticated())

	// The credential expires underneath an authenticated session.
	require.NoError(t, f.durable.Set(ctx, store.KeyToken, credential(t, now.Add(-time.Minute))))

	d := f.guards.Protected(ctx)
	require.False(t, d.Allow)
	require.False(t, f.authority.IsAuthenticated())
	_, ok := f.authority.Token(ctx)
	require.False(t, ok)

	snap := f.authority.MetricsSnapshot()
	require.EqualValues(t, 1, snap.Counters[goSession.MetricForcedExpiryGuard])
}

func TestProtectedTreatsMalformedAsExpired(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	require.NoError(t, f.durable.Set(ctx, store.KeyToken, "not-a-credential"))

	require.False(t, f.guards.Protected(ctx).Allow)
	_, ok := f.authority.Token(ctx)
	require.False(t, ok)
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	f := newFixture(t, credential(t, now))
	require.False(t, f.guards.Protected(context.Background()).Allow)
}

func TestGuardsWithoutNavigator(t *testing.T) {
	f := newFixture(t, "")
	codec := token.Codec{Now: func() time.Time { return now }}
	g := &guard.Guards{Authority: f.authority, Codec: &codec}

	require.Equal(t, goSession.ViewLogin, g.Protected(context.Background()).Redirect)
	require.Empty(t, f.nav.views)
}
