package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
)

// LoginRequest is the flow-local credential pair.
type LoginRequest struct {
	Email    string
	Password string
}

// LoginReply is what the endpoint answered: the credential plus whatever
// identity fields it included.
type LoginReply struct {
	Token   string
	Profile store.Profile
}

// LoginResult is a checked login: a non-empty credential and the derived profile.
type LoginResult struct {
	Token   string
	Profile store.Profile
}

// LoginMetrics carries metric IDs needed by the login flow. Success is not
// among them: a login only succeeds once the caller has committed the result.
type LoginMetrics struct {
	Failure      int
	MissingToken int
	Latency      int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Failure      string
	MissingToken string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	NotReady     error
	InvalidInput error
	MissingToken error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Authenticate func(context.Context, LoginRequest) (*LoginReply, error)
	DecodeClaims func(string) (*token.Claims, error)

	Hooks
	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin validates the request, asks the endpoint to authenticate it and
// checks that a credential came back. Endpoint errors are returned unchanged.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	h := deps.Hooks.withDefaults()
	if deps.Authenticate == nil {
		return nil, deps.Errors.NotReady
	}

	req.Email = normalizeEmail(req.Email)
	if err := ValidateLogin(req); err != nil {
		h.MetricInc(deps.Metrics.Failure)
		h.EmitAudit(ctx, deps.Events.Failure, false, "", deps.Errors.InvalidInput, func() map[string]string {
			return map[string]string{"reason": "invalid_input"}
		})
		return nil, fmt.Errorf("%w: %w", deps.Errors.InvalidInput, err)
	}

	start := h.Now()
	reply, err := deps.Authenticate(ctx, req)
	h.Observe(deps.Metrics.Latency, h.Now().Sub(start))
	if err != nil {
		h.MetricInc(deps.Metrics.Failure)
		h.EmitAudit(ctx, deps.Events.Failure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "rejected"}
		})
		return nil, err
	}

	if reply == nil || strings.TrimSpace(reply.Token) == "" {
		h.MetricInc(deps.Metrics.MissingToken)
		h.Warn("goSession: login response carried no token")
		h.EmitAudit(ctx, deps.Events.MissingToken, false, "", deps.Errors.MissingToken, nil)
		return nil, deps.Errors.MissingToken
	}

	profile := reply.Profile
	if deps.DecodeClaims != nil {
		if claims, err := deps.DecodeClaims(reply.Token); err == nil {
			FillProfile(&profile, claims)
		}
	}
	if profile.Email == "" {
		profile.Email = req.Email
	}

	return &LoginResult{Token: reply.Token, Profile: profile}, nil
}

// FillProfile copies identity claims into fields the endpoint left empty.
// Fields the endpoint did send always win.
func FillProfile(p *store.Profile, claims *token.Claims) {
	if p == nil || claims == nil {
		return
	}
	if p.ID == "" {
		p.ID = claims.SubjectID()
	}
	if p.Email == "" {
		p.Email = string(claims.Email)
	}
	if p.Username == "" {
		p.Username = string(claims.Username)
	}
	if p.Role == "" {
		p.Role = claims.Role()
	}
}
