package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. The Authority builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login   LoginDeps
	Signup  SignupDeps
	Refresh RefreshDeps
}

// Hooks are the observability callbacks shared by every flow.
type Hooks struct {
	Now       func() time.Time
	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)
	Warn      func(string, ...any)
}

func (h Hooks) withDefaults() Hooks {
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.Observe == nil {
		h.Observe = func(int, time.Duration) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, ...any) {}
	}
	return h
}
