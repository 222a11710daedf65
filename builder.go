package goSession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Authority]. A Builder is single-use.
type Builder struct {
	config Config

	credentials *store.CredentialStore
	redis       redis.UniversalClient
	endpoint    Endpoint
	navigator   Navigator
	auditSink   AuditSink
	logger      *slog.Logger
	now         func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore supplies a ready credential store. It takes precedence over
// Config.Store.
func (b *Builder) WithStore(cs *store.CredentialStore) *Builder {
	b.credentials = cs
	return b
}

// WithRedis supplies the client used by the redis backend. Without it the
// builder dials Config.Store.RedisAddr itself.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithEndpoint(e Endpoint) *Builder {
	b.endpoint = e
	return b
}

func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithAuditSink sets the audit destination. Events only flow when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for credential expiry and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens the credential backends and returns
// an Authority in the Uninitialized state. Call Start before use.
func (b *Builder) Build() (*Authority, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, closers, err := b.credentialStore(cfg)
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Authority{
		config:    cfg,
		store:     creds,
		codec:     token.Codec{Now: now, RequireExpiry: cfg.Token.RequireExpiry},
		endpoint:  b.endpoint,
		navigator: b.navigator,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		now:       now,
		cell:      newStateCell(),
		closers:   closers,
	}
	if cfg.Audit.Enabled {
		a.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}
	a.flows = flows.New(a.flowDeps())

	b.built = true
	return a, nil
}

func (b *Builder) credentialStore(cfg Config) (*store.CredentialStore, []io.Closer, error) {
	if b.credentials != nil {
		return b.credentials, nil, nil
	}

	var (
		durable store.KV
		closers []io.Closer
	)
	switch cfg.Store.Backend {
	case BackendMemory:
		durable = store.NewMemoryKV()
	case BackendFile:
		path := cfg.Store.Path
		if path == "" {
			path = store.DefaultFilePath("goSession")
		}
		kv, err := store.NewFileKV(path)
		if err != nil {
			return nil, nil, err
		}
		durable = kv
	case BackendRedis:
		client := b.redis
		if client == nil {
			owned := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
			closers = append(closers, owned)
			client = owned
		}
		durable = store.NewRedisKV(client, cfg.Store.RedisPrefix, cfg.Store.RedisTTL)
	case BackendSQLite:
		path := cfg.Store.SQLitePath
		if path == "" {
			path = cfg.Store.Path
		}
		kv, err := store.OpenSQLiteKV(path)
		if err != nil {
			return nil, nil, err
		}
		durable = kv
		closers = append(closers, kv)
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	creds, err := store.NewCredentialStore(durable, store.NewMemoryKV())
	if err != nil {
		return nil, nil, err
	}
	return creds, closers, nil
}

func (a *Authority) flowDeps() flows.Deps {
	hooks := flows.Hooks{
		Now:       a.now,
		MetricInc: func(id int) { a.metricInc(MetricID(id)) },
		Observe: func(id int, d time.Duration) {
			if a.metrics != nil {
				a.metrics.Observe(MetricID(id), d)
			}
		},
		EmitAudit: a.emitAudit,
		Warn:      func(msg string, args ...any) { a.logger.Warn(msg, args...) },
	}

	deps := flows.Deps{
		Login: flows.LoginDeps{
			DecodeClaims: token.Decode,
			Hooks:        hooks,
			Metrics: flows.LoginMetrics{
				Failure:      int(MetricLoginFailure),
				MissingToken: int(MetricLoginMissingToken),
				Latency:      int(MetricLoginLatency),
			},
			Events: flows.LoginEvents{
				Failure:      auditEventLoginFailure,
				MissingToken: auditEventLoginMissingToken,
			},
			Errors: flows.LoginErrors{
				NotReady:     ErrEndpointNotConfigured,
				InvalidInput: ErrInvalidInput,
				MissingToken: ErrMissingToken,
			},
		},
		Signup: flows.SignupDeps{
			Hooks: hooks,
			Metrics: flows.SignupMetrics{
				Success: int(MetricSignupSuccess),
				Failure: int(MetricSignupFailure),
			},
			Events: flows.SignupEvents{
				Success: auditEventSignupSuccess,
				Failure: auditEventSignupFailure,
			},
			Errors: flows.SignupErrors{
				NotReady:     ErrEndpointNotConfigured,
				InvalidInput: ErrInvalidInput,
			},
		},
		Refresh: flows.RefreshDeps{
			Hooks: hooks,
			Metrics: flows.RefreshMetrics{
				Failure: int(MetricRefreshFailure),
			},
			Events: flows.RefreshEvents{
				Failure: auditEventRefreshFailure,
			},
			Errors: flows.RefreshErrors{
				NotReady:     ErrEndpointNotConfigured,
				EmptyProfile: ErrEmptyProfile,
			},
		},
	}

	if a.endpoint == nil {
		return deps
	}

	deps.Login.Authenticate = func(ctx context.Context, req flows.LoginRequest) (*flows.LoginReply, error) {
		resp, err := a.endpoint.Login(ctx, Credentials{Email: req.Email, Password: req.Password})
		if err != nil || resp == nil {
			return nil, err
		}
		return &flows.LoginReply{Token: resp.Token, Profile: resp.Profile()}, nil
	}
	deps.Signup.Register = func(ctx context.Context, req flows.SignupRequest) (*store.Profile, error) {
		return a.endpoint.Signup(ctx, SignupRequest{
			Username:        req.Username,
			Email:           req.Email,
			Password:        req.Password,
			ConfirmPassword: req.ConfirmPassword,
		})
	}
	deps.Refresh.FetchProfile = a.endpoint.Me

	return deps
}
