package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/store"
)

// SignupRequest is the flow-local registration form. ConfirmPassword never
// leaves the client.
type SignupRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type SignupMetrics struct {
	Success int
	Failure int
}

type SignupEvents struct {
	Success string
	Failure string
}

type SignupErrors struct {
	NotReady     error
	InvalidInput error
}

// SignupDeps captures signup dependencies.
type SignupDeps struct {
	Register func(context.Context, SignupRequest) (*store.Profile, error)

	Hooks
	Metrics SignupMetrics
	Events  SignupEvents
	Errors  SignupErrors
}

// RunSignup validates the form and registers the account. It never signs the
// user in.
func RunSignup(ctx context.Context, req SignupRequest, deps SignupDeps) (*store.Profile, error) {
	h := deps.Hooks.withDefaults()
	if deps.Register == nil {
		return nil, deps.Errors.NotReady
	}

	req.Email = normalizeEmail(req.Email)
	if err := ValidateSignup(req); err != nil {
		h.MetricInc(deps.Metrics.Failure)
		h.EmitAudit(ctx, deps.Events.Failure, false, "", deps.Errors.InvalidInput, func() map[string]string {
			return map[string]string{"reason": "invalid_input"}
		})
		return nil, fmt.Errorf("%w: %w", deps.Errors.InvalidInput, err)
	}

	profile, err := deps.Register(ctx, req)
	if err != nil {
		h.MetricInc(deps.Metrics.Failure)
		h.EmitAudit(ctx, deps.Events.Failure, false, "", err, func() map[string]string {
			return map[string]string{"reason": "rejected"}
		})
		return nil, err
	}
	if profile == nil {
		profile = &store.Profile{}
	}
	if profile.Username == "" {
		profile.Username = req.Username
	}
	if profile.Email == "" {
		profile.Email = req.Email
	}

	h.MetricInc(deps.Metrics.Success)
	h.EmitAudit(ctx, deps.Events.Success, true, profile.ID, nil, nil)
	return profile, nil
}
