package internaldefs

import (
	mkclient "github.com/MrEthical07/mkclient"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   mkclient.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   mkclient.MetricID
	Name string
	Help string
}

// SignalsDroppedName is the counter fed by the signal dispatcher's drop count.
const (
	SignalsDroppedName = "mkclient_signals_dropped_total"
	SignalsDroppedHelp = "Signals dropped by the sink dispatcher due to backpressure."
)

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: mkclient.MetricLoginSuccess, Name: "mkclient_login_success_total", Help: "Successful logins."},
	{ID: mkclient.MetricLoginFailure, Name: "mkclient_login_failure_total", Help: "Failed logins, including rate-limited ones."},
	{ID: mkclient.MetricLoginRateLimited, Name: "mkclient_login_rate_limited_total", Help: "Logins refused by the backend rate limiter."},
	{ID: mkclient.MetricLogout, Name: "mkclient_logout_total", Help: "Explicit logouts."},
	{ID: mkclient.MetricRegisterSuccess, Name: "mkclient_register_success_total", Help: "Successful registrations."},
	{ID: mkclient.MetricRegisterFailure, Name: "mkclient_register_failure_total", Help: "Rejected registrations."},
	{ID: mkclient.MetricVerifySuccess, Name: "mkclient_verify_success_total", Help: "Identity checks that confirmed the session."},
	{ID: mkclient.MetricVerifyFailure, Name: "mkclient_verify_failure_total", Help: "Identity checks that did not confirm the session."},
	{ID: mkclient.MetricSignalSessionExpired, Name: "mkclient_signal_session_expired_total", Help: "Published session-expired signals."},
	{ID: mkclient.MetricSignalUpsell, Name: "mkclient_signal_subscription_upsell_total", Help: "Published subscription-upsell signals."},
	{ID: mkclient.MetricSignalTenantStatus, Name: "mkclient_signal_tenant_status_total", Help: "Published tenant-status-changed signals."},
	{ID: mkclient.MetricSignalForcedLogout, Name: "mkclient_signal_forced_logout_total", Help: "Published forced-logout signals."},
	{ID: mkclient.MetricSignalSuppressed, Name: "mkclient_signal_suppressed_total", Help: "Signals collapsed by the debounce window."},
	{ID: mkclient.MetricRaceRetry, Name: "mkclient_race_retry_total", Help: "Requests retried after a startup-race 401."},
	{ID: mkclient.MetricNavigation, Name: "mkclient_upsell_navigation_total", Help: "Navigations to the subscription surface after a 402."},
	{ID: mkclient.MetricTenantSuspended, Name: "mkclient_tenant_suspended_total", Help: "Transitions of the session into a suspended tenant."},
	{ID: mkclient.MetricTokenMigrated, Name: "mkclient_token_migrated_total", Help: "Tokens moved from a legacy storage key."},
	{ID: mkclient.MetricStorageFailure, Name: "mkclient_storage_failure_total", Help: "Failed session storage operations."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: mkclient.MetricRequestLatency, Name: "mkclient_request_latency_seconds", Help: "Backend request latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native
// histograms.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
