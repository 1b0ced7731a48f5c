package session

import "strings"

// TenantStatus is the tenant payment state reported by the backend.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// ParseTenantStatus maps a backend value onto TenantStatus. Empty and "active"/"activo"
// values are active; any other explicit value reports a restriction and is suspended.
func ParseTenantStatus(v string) TenantStatus {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "active", "activo", "activa":
		return TenantActive
	default:
		return TenantSuspended
	}
}

// State is the authentication state derived from a Session.
type State uint8

const (
	StateUnauthenticated State = iota
	// StateAuthenticating holds a token that is not yet ready; only the transport acts on it.
	StateAuthenticating
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the store.
type Session struct {
	Token        string
	Role         string
	TenantStatus TenantStatus
	AuthReady    bool
	Expired      bool
}

// State derives the authentication state.
func (s Session) State() State {
	switch {
	case s.Token == "":
		return StateUnauthenticated
	case s.Expired:
		return StateExpired
	case !s.AuthReady:
		return StateAuthenticating
	default:
		return StateAuthenticated
	}
}

// Suspended reports whether mutating actions should be refused.
func (s Session) Suspended() bool {
	return s.Token != "" && s.TenantStatus == TenantSuspended
}

func loggedOut() Session {
	return Session{TenantStatus: TenantActive}
}
