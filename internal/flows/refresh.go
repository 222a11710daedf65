package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/store"
)

// RefreshMetrics and RefreshEvents cover failures only; success is recorded by
// the caller once the profile is committed.
type RefreshMetrics struct {
	Failure int
}

type RefreshEvents struct {
	Failure string
}

type RefreshErrors struct {
	NotReady     error
	EmptyProfile error
}

// RefreshDeps captures profile refresh dependencies.
type RefreshDeps struct {
	FetchProfile func(context.Context) (*store.Profile, error)

	Hooks
	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh fetches the current profile from the endpoint. The result replaces
// the cached profile wholesale; partial answers are not merged.
func RunRefresh(ctx context.Context, deps RefreshDeps) (*store.Profile, error) {
	h := deps.Hooks.withDefaults()
	if deps.FetchProfile == nil {
		return nil, deps.Errors.NotReady
	}

	profile, err := deps.FetchProfile(ctx)
	if err == nil && (profile == nil || profile.ID == "") {
		err = deps.Errors.EmptyProfile
		if err == nil {
			err = errors.New("empty profile")
		}
	}
	if err != nil {
		h.MetricInc(deps.Metrics.Failure)
		h.EmitAudit(ctx, deps.Events.Failure, false, "", err, nil)
		return nil, err
	}

	return profile, nil
}
