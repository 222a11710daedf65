package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that established a session."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected locally or by the endpoint."},
	{ID: goSession.MetricLoginMissingToken, Name: "gosession_login_missing_token_total", Help: "Successful login responses that carried no token."},
	{ID: goSession.MetricLoginSuperseded, Name: "gosession_login_superseded_total", Help: "Login results discarded because a logout happened first."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Explicit logouts."},
	{ID: goSession.MetricForcedExpiry, Name: "gosession_forced_expiry_total", Help: "Sessions ended because the credential became unusable."},
	{ID: goSession.MetricForcedExpiryGuard, Name: "gosession_forced_expiry_guard_total", Help: "Forced expiries raised by the protected-view guard."},
	{ID: goSession.MetricForcedExpiryRejected, Name: "gosession_forced_expiry_rejected_total", Help: "Forced expiries raised by a rejected authenticated request."},
	{ID: goSession.MetricForcedExpiryStartup, Name: "gosession_forced_expiry_startup_total", Help: "Forced expiries raised while restoring at startup."},
	{ID: goSession.MetricForcedExpiryRefresh, Name: "gosession_forced_expiry_refresh_total", Help: "Forced expiries raised by a profile refresh."},
	{ID: goSession.MetricStartupRestored, Name: "gosession_startup_restored_total", Help: "Sessions restored from the durable store at startup."},
	{ID: goSession.MetricStartupHealed, Name: "gosession_startup_healed_total", Help: "Stale stored sessions cleared at startup."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful profile refreshes."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed profile refreshes."},
	{ID: goSession.MetricSignupSuccess, Name: "gosession_signup_success_total", Help: "Accounts registered."},
	{ID: goSession.MetricSignupFailure, Name: "gosession_signup_failure_total", Help: "Registrations rejected locally or by the endpoint."},
	{ID: goSession.MetricGuardAllow, Name: "gosession_guard_allow_total", Help: "Guard checks that admitted the caller."},
	{ID: goSession.MetricGuardDeny, Name: "gosession_guard_deny_total", Help: "Guard checks that redirected the caller."},
	{ID: goSession.MetricRequestAugmented, Name: "gosession_request_augmented_total", Help: "Outbound requests that carried the bearer credential."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoginLatency, Name: "gosession_login_latency_seconds", Help: "Authentication endpoint round-trip time for logins."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form valid inside an
// instrument name.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
