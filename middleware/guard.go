package middleware

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
)

// Paths maps guard redirect views to URL paths.
type Paths map[goSession.View]string

// DefaultPaths sends login redirects to /login and home redirects to /home.
func DefaultPaths() Paths {
	return Paths{
		goSession.ViewLogin: "/login",
		goSession.ViewHome:  "/home",
	}
}

type userContextKey struct{}

// UserFromContext returns the profile RequireSession stored for the request.
func UserFromContext(ctx context.Context) (*goSession.UserProfile, bool) {
	u, ok := ctx.Value(userContextKey{}).(*goSession.UserProfile)
	return u, ok && u != nil
}

// RequireSession runs next only when g.Protected allows; otherwise it redirects
// with 303 See Other. The signed-in profile, when known, is placed on the
// request context.
func RequireSession(g *guard.Guards, paths Paths) func(http.Handler) http.Handler {
	return guarded(g, paths, func(ctx context.Context) guard.Decision { return g.Protected(ctx) }, true)
}

// RequireAnonymous runs next only when g.AntiProtected allows; otherwise it
// redirects with 303 See Other.
func RequireAnonymous(g *guard.Guards, paths Paths) func(http.Handler) http.Handler {
	return guarded(g, paths, func(ctx context.Context) guard.Decision { return g.AntiProtected(ctx) }, false)
}

func guarded(g *guard.Guards, paths Paths, decide func(context.Context) guard.Decision, attachUser bool) func(http.Handler) http.Handler {
	if paths == nil {
		paths = DefaultPaths()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil || g.Authority == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			d := decide(r.Context())
			if !d.Allow {
				target, ok := paths[d.Redirect]
				if !ok || target == "" {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}

			if attachUser {
				if u := currentUser(g.Authority); u != nil {
					r = r.WithContext(context.WithValue(r.Context(), userContextKey{}, u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(a guard.Authority) *goSession.UserProfile {
	type profileSource interface {
		CurrentUser() *goSession.UserProfile
	}
	if ps, ok := a.(profileSource); ok {
		return ps.CurrentUser()
	}
	return nil
}
