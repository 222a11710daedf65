package flows

import (
	"context"

	"github.com/MrEthical07/goSession/store"
)

// Service is the centralized flow runner built once by the Authority.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with an endpoint.
func (s Service) Initialized() bool {
	return s.deps.Login.Authenticate != nil
}

func (s Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Signup(ctx context.Context, req SignupRequest) (*store.Profile, error) {
	return RunSignup(ctx, req, s.deps.Signup)
}

func (s Service) Refresh(ctx context.Context) (*store.Profile, error) {
	return RunRefresh(ctx, s.deps.Refresh)
}
