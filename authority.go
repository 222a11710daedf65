package goSession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/store"
	"github.com/MrEthical07/goSession/token"
)

// Authority is the single owner of the session: it persists the credential,
// exposes the authentication state and performs every transition.
//
// Transitions are serialized by one mutex. Endpoint calls run outside the lock;
// a Logout or forced expiry that lands while a login or refresh is in flight
// advances an epoch, and the late result is discarded.
type Authority struct {
	config    Config
	store     *store.CredentialStore
	codec     token.Codec
	endpoint  Endpoint
	navigator Navigator
	logger    *slog.Logger
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	flows     flows.Service
	now       func() time.Time
	cell      *stateCell
	closers   []io.Closer

	mu      sync.Mutex
	started bool
	closed  bool
	epoch   uint64
}

// Start reads the durable scope once. A present, unexpired credential with a
// profile restores the session; anything else clears both scopes.
func (a *Authority) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true

	rec, readErr := a.store.Read(ctx, store.ScopeDurable)
	if readErr != nil {
		a.logger.Warn("goSession: reading stored credential failed", "error", readErr)
	}

	if readErr == nil && rec.Token != "" && rec.Profile != nil && !a.codec.IsExpired(rec.Token) {
		if err := a.store.Persist(ctx, store.ScopeEphemeral, rec.Token, *rec.Profile); err != nil {
			a.logger.Warn("goSession: restoring ephemeral user id failed", "error", err)
		}
		a.cell.set(State{Status: StatusAuthenticated, User: rec.Profile})
		a.metricInc(MetricStartupRestored)
		a.emitAudit(ctx, auditEventStartup, true, rec.Profile.ID, nil, func() map[string]string {
			return map[string]string{"outcome": "restored"}
		})
		a.logger.Info("goSession: session restored", "user_id", rec.Profile.ID)
		return nil
	}

	stale := rec.Token != "" || rec.Profile != nil
	clearErr := a.store.Clear(ctx)
	if clearErr != nil {
		a.logger.Warn("goSession: clearing credential store failed", "error", clearErr)
	}
	a.cell.set(State{Status: StatusUnauthenticated})

	outcome := "anonymous"
	if stale {
		outcome = "healed"
		a.metricInc(MetricStartupHealed)
		a.recordForcedExpiry(ctx, ReasonStartup, profileID(rec.Profile))
	}
	a.emitAudit(ctx, auditEventStartup, true, "", nil, func() map[string]string {
		return map[string]string{"outcome": outcome}
	})

	return errors.Join(wrapStoreErr(readErr), wrapStoreErr(clearErr))
}

// Login authenticates creds against the endpoint. On success the credential and
// profile are persisted to both scopes and the new state is published. On
// failure the state is unchanged and the endpoint's error is returned.
func (a *Authority) Login(ctx context.Context, creds Credentials) (State, error) {
	epoch, err := a.beginCall()
	if err != nil {
		return a.cell.load(), err
	}

	res, err := a.flows.Login(ctx, flows.LoginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return a.cell.load(), err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.epoch != epoch {
		a.metricInc(MetricLoginSuperseded)
		a.emitAudit(ctx, auditEventLoginSuperseded, false, res.Profile.ID, ErrLoginSuperseded, nil)
		a.logger.Info("goSession: discarded login result after logout", "user_id", res.Profile.ID)
		return a.cell.load(), ErrLoginSuperseded
	}

	profile := res.Profile
	if err := a.store.Persist(ctx, store.ScopeBoth, res.Token, profile); err != nil {
		a.logger.Error("goSession: persisting credential failed", "error", err)
		// No credential may outlive a login that did not commit.
		if _, clearErr := a.expireLocked(ctx); clearErr != nil {
			a.logger.Warn("goSession: clearing credential store failed", "error", clearErr)
		}
		a.metricInc(MetricLoginFailure)
		a.emitAudit(ctx, auditEventLoginFailure, false, profile.ID, errStore, func() map[string]string {
			return map[string]string{"reason": "persist"}
		})
		return a.cell.load(), wrapStoreErr(err)
	}
	a.cell.set(State{Status: StatusAuthenticated, User: &profile})
	a.metricInc(MetricLoginSuccess)
	a.emitAudit(ctx, auditEventLoginSuccess, true, profile.ID, nil, nil)
	a.logger.Info("goSession: signed in", "user_id", profile.ID)

	return a.cell.load(), nil
}

// Logout clears both scopes and publishes the unauthenticated state. It is
// idempotent. A store failure is returned, but the in-memory state is
// unauthenticated regardless. When notifyNavigation is set the navigator is sent
// to the login view.
func (a *Authority) Logout(ctx context.Context, notifyNavigation bool) error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return ErrNotStarted
	}
	prev, err := a.expireLocked(ctx)
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("goSession: clearing credential store failed", "error", err)
	}
	a.metricInc(MetricLogout)
	a.emitAudit(ctx, auditEventLogout, err == nil, profileID(prev.User), err, nil)

	if notifyNavigation && a.navigator != nil {
		a.navigator.Navigate(ctx, ViewLogin)
	}
	return err
}

// ForcedExpiry ends the session because the credential is no longer usable.
// It behaves like Logout(ctx, false) but is recorded with reason. It never
// navigates; guards do that themselves. Before Start it does nothing: Start
// owns the first transition and heals a stale store itself.
func (a *Authority) ForcedExpiry(ctx context.Context, reason ExpiryReason) {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	prev, err := a.expireLocked(ctx)
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("goSession: clearing credential store failed", "error", err)
	}
	a.recordForcedExpiry(ctx, reason, profileID(prev.User))
}

// forcedExpiryAt expires the session only if no other transition ended it since
// epoch was taken. It reports whether it acted.
func (a *Authority) forcedExpiryAt(ctx context.Context, reason ExpiryReason, epoch uint64) bool {
	a.mu.Lock()
	if a.epoch != epoch {
		a.mu.Unlock()
		return false
	}
	prev, err := a.expireLocked(ctx)
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("goSession: clearing credential store failed", "error", err)
	}
	a.recordForcedExpiry(ctx, reason, profileID(prev.User))
	return true
}

// Refresh re-reads the profile from the endpoint and replaces the cached one.
// It requires an authenticated session with an unexpired credential; otherwise
// the session is expired and ErrNotAuthenticated returned.
func (a *Authority) Refresh(ctx context.Context) (State, error) {
	epoch, err := a.beginCall()
	if err != nil {
		return a.cell.load(), err
	}

	if !a.cell.load().IsAuthenticated() {
		return a.cell.load(), ErrNotAuthenticated
	}
	if raw, ok := a.Token(ctx); !ok || a.codec.IsExpired(raw) {
		a.forcedExpiryAt(ctx, ReasonRefresh, epoch)
		return a.cell.load(), ErrNotAuthenticated
	}

	profile, err := a.flows.Refresh(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			a.forcedExpiryAt(ctx, ReasonRefresh, epoch)
		}
		return a.cell.load(), err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.epoch != epoch {
		a.logger.Info("goSession: discarded profile refresh after logout", "user_id", profile.ID)
		return a.cell.load(), ErrRefreshSuperseded
	}
	if err := a.store.PersistProfile(ctx, *profile); err != nil {
		a.logger.Error("goSession: persisting profile failed", "error", err)
		return a.cell.load(), wrapStoreErr(err)
	}
	a.cell.set(State{Status: StatusAuthenticated, User: profile})
	a.metricInc(MetricRefreshSuccess)
	a.emitAudit(ctx, auditEventRefreshSuccess, true, profile.ID, nil, nil)

	return a.cell.load(), nil
}

// Signup registers a new account. It never changes the session state.
func (a *Authority) Signup(ctx context.Context, req SignupRequest) (*UserProfile, error) {
	return a.flows.Signup(ctx, flows.SignupRequest{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
}

// HasRole reports whether the signed-in user's role equals role, ignoring case.
func (a *Authority) HasRole(role string) bool {
	s := a.cell.load()
	if !s.IsAuthenticated() || role == "" || s.User.Role == "" {
		return false
	}
	return strings.EqualFold(s.User.Role, role)
}

// Token reads the credential from the durable scope. It is never cached; a read
// failure reports absent.
func (a *Authority) Token(ctx context.Context) (string, bool) {
	raw, ok, err := a.store.Token(ctx)
	if err != nil {
		a.logger.Debug("goSession: reading credential failed", "error", err)
		return "", false
	}
	return raw, ok
}

func (a *Authority) IsAuthenticated() bool {
	return a.cell.load().IsAuthenticated()
}

// CurrentUser returns a copy of the signed-in profile, or nil.
func (a *Authority) CurrentUser() *UserProfile {
	return a.cell.load().User
}

func (a *Authority) State() State {
	return a.cell.load()
}

// Subscribe returns a channel that first receives the current state and then
// every published change. A subscriber that falls behind loses the oldest
// queued states, never the latest. buffer <= 0 uses the configured default.
// cancel detaches and closes the channel.
func (a *Authority) Subscribe(buffer int) (<-chan State, func()) {
	if buffer <= 0 {
		buffer = a.config.State.SubscriberBuffer
	}
	return a.cell.subscribe(buffer)
}

// Codec returns the credential evaluator configured for this Authority.
func (a *Authority) Codec() token.Codec {
	return a.codec
}

// Navigator returns the configured navigator, or nil.
func (a *Authority) Navigator() Navigator {
	return a.navigator
}

// Metrics returns the Authority's metric registry for collaborators that record
// their own counters (guards, transport).
func (a *Authority) Metrics() *Metrics {
	if a == nil {
		return nil
	}
	return a.metrics
}

// Config returns a copy of the configuration the Authority was built with.
func (a *Authority) Config() Config {
	return cloneConfig(a.config)
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (a *Authority) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Sums:       map[MetricID]float64{},
		}
	}
	return a.metrics.Snapshot()
}

// AuditDropped counts audit events discarded under backpressure.
func (a *Authority) AuditDropped() uint64 {
	if a == nil || a.audit == nil {
		return 0
	}
	return a.audit.Dropped()
}

// Close flushes the audit dispatcher, closes subscriber channels and releases
// backends the builder opened.
func (a *Authority) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.cell.close()
	if a.audit != nil {
		a.audit.Close()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *Authority) beginCall() (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return 0, ErrNotStarted
	}
	return a.epoch, nil
}

// expireLocked must be called with a.mu held.
func (a *Authority) expireLocked(ctx context.Context) (State, error) {
	a.epoch++
	prev := a.cell.load()
	err := a.store.Clear(ctx)
	a.cell.set(State{Status: StatusUnauthenticated})
	return prev, wrapStoreErr(err)
}

func (a *Authority) recordForcedExpiry(ctx context.Context, reason ExpiryReason, userID string) {
	a.metricInc(MetricForcedExpiry)
	switch reason {
	case ReasonGuard:
		a.metricInc(MetricForcedExpiryGuard)
	case ReasonRejected:
		a.metricInc(MetricForcedExpiryRejected)
	case ReasonStartup:
		a.metricInc(MetricForcedExpiryStartup)
	case ReasonRefresh:
		a.metricInc(MetricForcedExpiryRefresh)
	}
	a.logger.Info("goSession: session expired", "reason", string(reason), "user_id", userID)
	a.emitAudit(ctx, auditEventForcedExpiry, true, userID, nil, func() map[string]string {
		return map[string]string{"reason": string(reason)}
	})
}

func (a *Authority) metricInc(id MetricID) {
	if a == nil || a.metrics == nil {
		return
	}
	a.metrics.Inc(id)
}

func profileID(p *UserProfile) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errStore, err)
}
