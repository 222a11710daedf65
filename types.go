package goSession

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
	"github.com/MrEthical07/goSession/store"
)

// Status is the Authority's authentication status.
type Status uint8

const (
	// StatusUninitialized holds until Start has read the credential store.
	StatusUninitialized Status = iota
	// StatusAuthenticated means a credential is persisted and a profile is known.
	StatusAuthenticated
	// StatusUnauthenticated means no usable credential exists.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// UserProfile is the signed-in user's identity. It is replaced wholesale on
// login and refresh and cleared on logout.
type UserProfile = store.Profile

// State is one observable snapshot of the session.
type State struct {
	Status Status
	User   *UserProfile
}

// IsAuthenticated reports whether s represents a signed-in user.
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the registration form. ConfirmPassword is checked locally and
// never sent.
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// LoginResponse is the authentication endpoint's answer to a login.
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Profile returns the identity fields of r.
func (r LoginResponse) Profile() UserProfile {
	return UserProfile{ID: r.UserID, Email: r.Email, Username: r.Username, Role: r.Role}
}

// Endpoint is the remote authentication service.
type Endpoint interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Signup(ctx context.Context, req SignupRequest) (*UserProfile, error)
	Me(ctx context.Context) (*UserProfile, error)
}

// View names a navigation target.
type View string

const (
	ViewLogin View = "login"
	ViewHome  View = "home"
)

// Navigator performs view transitions on behalf of guards and Logout.
type Navigator interface {
	Navigate(ctx context.Context, view View)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, view View)

func (f NavigatorFunc) Navigate(ctx context.Context, view View) {
	f(ctx, view)
}

// ExpiryReason records what forced a session to end.
type ExpiryReason string

const (
	// ReasonGuard is a protected-view check that found the credential missing or expired.
	ReasonGuard ExpiryReason = "guard"
	// ReasonRejected is a server response carrying an authorization-rejection status.
	ReasonRejected ExpiryReason = "rejected"
	// ReasonStartup is a stored credential found unusable at Start.
	ReasonStartup ExpiryReason = "startup"
	// ReasonRefresh is a profile refresh attempted with an unusable credential.
	ReasonRefresh ExpiryReason = "refresh"
)

// AuditEvent is a structured audit record emitted on every transition.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the Authority's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs events through [log/slog].
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a [SlogSink] logging at level.
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	return internalaudit.NewSlogSink(logger, level)
}

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess         = internalmetrics.MetricLoginSuccess
	MetricLoginFailure         = internalmetrics.MetricLoginFailure
	MetricLoginMissingToken    = internalmetrics.MetricLoginMissingToken
	MetricLoginSuperseded      = internalmetrics.MetricLoginSuperseded
	MetricLogout               = internalmetrics.MetricLogout
	MetricForcedExpiry         = internalmetrics.MetricForcedExpiry
	MetricForcedExpiryGuard    = internalmetrics.MetricForcedExpiryGuard
	MetricForcedExpiryRejected = internalmetrics.MetricForcedExpiryRejected
	MetricForcedExpiryStartup  = internalmetrics.MetricForcedExpiryStartup
	MetricForcedExpiryRefresh  = internalmetrics.MetricForcedExpiryRefresh
	MetricStartupRestored      = internalmetrics.MetricStartupRestored
	MetricStartupHealed        = internalmetrics.MetricStartupHealed
	MetricRefreshSuccess       = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure       = internalmetrics.MetricRefreshFailure
	MetricSignupSuccess        = internalmetrics.MetricSignupSuccess
	MetricSignupFailure        = internalmetrics.MetricSignupFailure
	MetricGuardAllow           = internalmetrics.MetricGuardAllow
	MetricGuardDeny            = internalmetrics.MetricGuardDeny
	MetricRequestAugmented     = internalmetrics.MetricRequestAugmented
	MetricLoginLatency         = internalmetrics.MetricLoginLatency

	// MetricIDCount is one past the last MetricID.
	MetricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled is
// false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
