package mkclient

import (
	"github.com/MrEthical07/mkclient/api"
	internalmetrics "github.com/MrEthical07/mkclient/internal/metrics"
	"github.com/MrEthical07/mkclient/session"
	"github.com/MrEthical07/mkclient/signal"
	"github.com/MrEthical07/mkclient/storage"
	"github.com/MrEthical07/mkclient/token"
)

// Session is a point-in-time copy of the session.
type Session = session.Session

// SessionState is the lifecycle state derived from a Session.
type SessionState = session.State

const (
	StateUnauthenticated = session.StateUnauthenticated
	StateAuthenticating  = session.StateAuthenticating
	StateAuthenticated   = session.StateAuthenticated
	StateExpired         = session.StateExpired
)

// TenantStatus is the normalized tenant payment state.
type TenantStatus = session.TenantStatus

const (
	TenantActive    = session.TenantActive
	TenantSuspended = session.TenantSuspended
)

// ParseTenantStatus normalizes a backend tenant status. Anything other than an
// active status is suspended.
func ParseTenantStatus(s string) TenantStatus {
	return session.ParseTenantStatus(s)
}

// Claims are the unverified claims of the session token.
type Claims = token.Claims

// Signal is a classified event published on the client's bus.
type Signal = signal.Signal

// SignalKind names a Signal.
type SignalKind = signal.Kind

const (
	SignalSessionExpired      = signal.SessionExpired
	SignalSubscriptionUpsell  = signal.SubscriptionUpsell
	SignalTenantStatusChanged = signal.TenantStatusChanged
	SignalForcedLogout        = signal.ForcedLogout
)

// Theme is the UI color scheme preference.
type Theme = storage.Theme

const (
	ThemeLight = storage.ThemeLight
	ThemeDark  = storage.ThemeDark
)

// Alert operational states.
const (
	AlertPending    = api.AlertPending
	AlertInProgress = api.AlertInProgress
	AlertResolved   = api.AlertResolved
)

// Resource types.
type (
	RegisterInput      = api.RegisterInput
	Device             = api.Device
	DeviceInput        = api.DeviceInput
	Alert              = api.Alert
	AlertFilter        = api.AlertFilter
	AlertStatusUpdate  = api.AlertStatusUpdate
	LogEntry           = api.LogEntry
	LogRow             = api.LogRow
	LogQuery           = api.LogQuery
	SubscriptionStatus = api.SubscriptionStatus
)

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess         = internalmetrics.MetricLoginSuccess
	MetricLoginFailure         = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited     = internalmetrics.MetricLoginRateLimited
	MetricLogout               = internalmetrics.MetricLogout
	MetricRegisterSuccess      = internalmetrics.MetricRegisterSuccess
	MetricRegisterFailure      = internalmetrics.MetricRegisterFailure
	MetricVerifySuccess        = internalmetrics.MetricVerifySuccess
	MetricVerifyFailure        = internalmetrics.MetricVerifyFailure
	MetricSignalSessionExpired = internalmetrics.MetricSignalSessionExpired
	MetricSignalUpsell         = internalmetrics.MetricSignalUpsell
	MetricSignalTenantStatus   = internalmetrics.MetricSignalTenantStatus
	MetricSignalForcedLogout   = internalmetrics.MetricSignalForcedLogout
	MetricSignalSuppressed     = internalmetrics.MetricSignalSuppressed
	MetricRaceRetry            = internalmetrics.MetricRaceRetry
	MetricNavigation           = internalmetrics.MetricNavigation
	MetricTenantSuspended      = internalmetrics.MetricTenantSuspended
	MetricTokenMigrated        = internalmetrics.MetricTokenMigrated
	MetricStorageFailure       = internalmetrics.MetricStorageFailure
	MetricRequestLatency       = internalmetrics.MetricRequestLatency
)

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot
