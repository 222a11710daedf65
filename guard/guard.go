package guard

import (
	"context"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/token"
)

// Authority is the part of *goSession.Authority the guards use.
type Authority interface {
	Token(ctx context.Context) (string, bool)
	IsAuthenticated() bool
	ForcedExpiry(ctx context.Context, reason goSession.ExpiryReason)
}

// Decision is a guard verdict. Redirect names the view to show instead when
// Allow is false.
type Decision struct {
	Allow    bool
	Redirect goSession.View
}

// Guards evaluates entry to protected and anonymous-only views.
//
// Codec defaults to the Authority's codec and Navigator to the Authority's
// navigator when the Authority is a *goSession.Authority.
type Guards struct {
	Authority Authority
	Codec     *token.Codec
	Navigator goSession.Navigator
}

// New returns Guards wired to a.
func New(a *goSession.Authority) *Guards {
	codec := a.Codec()
	return &Guards{Authority: a, Codec: &codec, Navigator: a.Navigator()}
}

// Protected admits the caller when a credential is stored and not expired. It
// reads the store directly and ignores the Authority's cached status. On
// denial the session is force-expired and the navigator is sent to the login
// view.
func (g *Guards) Protected(ctx context.Context) Decision {
	raw, ok := g.Authority.Token(ctx)
	if ok && !g.isExpired(raw) {
		g.count(goSession.MetricGuardAllow)
		return Decision{Allow: true}
	}

	g.Authority.ForcedExpiry(ctx, goSession.ReasonGuard)
	g.count(goSession.MetricGuardDeny)
	g.navigate(ctx, goSession.ViewLogin)
	return Decision{Redirect: goSession.ViewLogin}
}

// AntiProtected admits the caller only when no session is active. A signed-in
// caller is sent to the home view.
func (g *Guards) AntiProtected(ctx context.Context) Decision {
	if g.Authority.IsAuthenticated() {
		g.count(goSession.MetricGuardDeny)
		g.navigate(ctx, goSession.ViewHome)
		return Decision{Redirect: goSession.ViewHome}
	}
	g.count(goSession.MetricGuardAllow)
	return Decision{Allow: true}
}

func (g *Guards) isExpired(raw string) bool {
	if g.Codec != nil {
		return g.Codec.IsExpired(raw)
	}
	return token.IsExpired(raw)
}

func (g *Guards) navigate(ctx context.Context, view goSession.View) {
	if g.Navigator != nil {
		g.Navigator.Navigate(ctx, view)
	}
}

func (g *Guards) count(id goSession.MetricID) {
	type metricsSource interface {
		Metrics() *goSession.Metrics
	}
	if ms, ok := g.Authority.(metricsSource); ok {
		if m := ms.Metrics(); m != nil {
			m.Inc(id)
		}
	}
}
