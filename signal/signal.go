package signal

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a classified signal.
type Kind string

const (
	// SessionExpired is raised on a definitive 401 or an explicit expiry report.
	SessionExpired Kind = "session-expired"
	// SubscriptionUpsell is raised on a 402 while already on the subscription surface.
	SubscriptionUpsell Kind = "subscription-upsell"
	// TenantStatusChanged carries the tenant status reported with a 403/423.
	TenantStatusChanged Kind = "tenant-status-changed"
	// ForcedLogout asks every subscriber to drop the session.
	ForcedLogout Kind = "forced-logout"
)

// ReasonExpired is the Reason attached to SessionExpired when the backend said so.
const ReasonExpired = "expired"

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{SessionExpired, SubscriptionUpsell, TenantStatusChanged, ForcedLogout}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case SessionExpired, SubscriptionUpsell, TenantStatusChanged, ForcedLogout:
		return true
	}
	return false
}

// Signal is one published event.
type Signal struct {
	ID           uuid.UUID `json:"id"`
	Kind         Kind      `json:"kind"`
	TenantStatus string    `json:"tenant_status,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}

// Expired builds a SessionExpired signal.
func Expired(reason string) Signal {
	return Signal{Kind: SessionExpired, Reason: reason}
}

// Upsell builds a SubscriptionUpsell signal.
func Upsell() Signal {
	return Signal{Kind: SubscriptionUpsell}
}

// TenantStatus builds a TenantStatusChanged signal carrying status.
func TenantStatus(status string) Signal {
	return Signal{Kind: TenantStatusChanged, TenantStatus: status}
}

// Logout builds a ForcedLogout signal with an optional reason.
func Logout(reason string) Signal {
	return Signal{Kind: ForcedLogout, Reason: reason}
}
