package storage

import (
	"context"
	"errors"
)

// Key names used by the session store and preferences.
const (
	KeyToken         = "auth_token"
	KeyRole          = "role"
	KeyTenantStatus  = "tenant_status"
	KeyTheme         = "theme"
	KeyRememberEmail = "remember_email"
)

// LegacyTokenKeys are token keys written by earlier schema versions, in adoption
// priority order.
var LegacyTokenKeys = []string{"access_token", "token"}

// SessionKeys lists every key owned by the session (current and legacy).
func SessionKeys() []string {
	keys := []string{KeyToken, KeyRole, KeyTenantStatus}
	return append(keys, LegacyTokenKeys...)
}

var (
	// ErrUnavailable wraps backend failures (I/O, network).
	ErrUnavailable = errors.New("storage unavailable")
	// ErrEmptyKey is returned for operations on the empty key.
	ErrEmptyKey = errors.New("storage key is empty")
)

// Storage is a durable string key-value store.
type Storage interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// BatchSetter is implemented by storages that can write several keys in one step.
type BatchSetter interface {
	SetMany(ctx context.Context, values map[string]string) error
}

// SetAll writes values through s.SetMany when available, otherwise key by key.
func SetAll(ctx context.Context, s Storage, values map[string]string) error {
	if b, ok := s.(BatchSetter); ok {
		return b.SetMany(ctx, values)
	}
	for k, v := range values {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

// MigrateLegacyToken moves a token stored under a legacy key to [KeyToken].
//
// When the current key is empty and any legacy key holds a value, the first such value
// (in [LegacyTokenKeys] order) is adopted and migrated reports true. Legacy keys are
// cleared whenever any of them is present, so a second call is a no-op.
func MigrateLegacyToken(ctx context.Context, s Storage) (bool, error) {
	current, ok, err := s.Get(ctx, KeyToken)
	if err != nil {
		return false, err
	}
	hasCurrent := ok && current != ""

	var adopted string
	var present []string
	for _, key := range LegacyTokenKeys {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		present = append(present, key)
		if adopted == "" && v != "" {
			adopted = v
		}
	}
	if len(present) == 0 {
		return false, nil
	}

	migrated := false
	if !hasCurrent && adopted != "" {
		if err := s.Set(ctx, KeyToken, adopted); err != nil {
			return false, err
		}
		migrated = true
	}
	if err := s.Delete(ctx, present...); err != nil {
		return migrated, err
	}
	return migrated, nil
}
