package storage

import (
	"context"
	"errors"
	"strings"
)

// Theme is the UI colour preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrInvalidTheme is returned by SetTheme for anything other than light or dark.
var ErrInvalidTheme = errors.New("invalid theme")

// Preferences reads and writes the non-session convenience values.
type Preferences struct {
	store Storage
}

// NewPreferences wraps s.
func NewPreferences(s Storage) *Preferences {
	return &Preferences{store: s}
}

// Theme returns the stored theme, or light when the stored value is absent or invalid.
func (p *Preferences) Theme(ctx context.Context) Theme {
	v, ok, err := p.store.Get(ctx, KeyTheme)
	if err != nil || !ok {
		return ThemeLight
	}
	switch Theme(v) {
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeLight
	}
}

// SetTheme persists t.
func (p *Preferences) SetTheme(ctx context.Context, t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return ErrInvalidTheme
	}
	return p.store.Set(ctx, KeyTheme, string(t))
}

// RememberedEmail returns the email saved by RememberEmail.
func (p *Preferences) RememberedEmail(ctx context.Context) (string, bool) {
	v, ok, err := p.store.Get(ctx, KeyRememberEmail)
	if err != nil || !ok || v == "" {
		return "", false
	}
	return v, true
}

// RememberEmail stores the trimmed email. An empty email forgets the current one.
func (p *Preferences) RememberEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return p.ForgetEmail(ctx)
	}
	return p.store.Set(ctx, KeyRememberEmail, email)
}

// ForgetEmail removes the remembered email.
func (p *Preferences) ForgetEmail(ctx context.Context) error {
	return p.store.Delete(ctx, KeyRememberEmail)
}
