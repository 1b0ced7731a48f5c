package token

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Inspect for opaque tokens.
var ErrNotJWT = errors.New("token is not a JWT")

// Claims is the identity carried by a backend token.
type Claims struct {
	Subject   string
	TenantID  string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the token expiry, extended by leeway, is before now. Tokens
// without an exp claim never expire client-side.
func (c Claims) Expired(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt.Add(leeway))
}

// id decodes both JSON numbers and strings; the backend emits numeric user and tenant ids.
type id string

func (v *id) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = id(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = id(n.String())
	return nil
}

type wireClaims struct {
	Sub      id               `json:"sub,omitempty"`
	TenantID id               `json:"tenant_id,omitempty"`
	Role     string           `json:"role,omitempty"`
	Exp      *jwt.NumericDate `json:"exp,omitempty"`
	Iat      *jwt.NumericDate `json:"iat,omitempty"`
}

func (w wireClaims) GetExpirationTime() (*jwt.NumericDate, error) { return w.Exp, nil }
func (w wireClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return w.Iat, nil }
func (w wireClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (w wireClaims) GetIssuer() (string, error)                   { return "", nil }
func (w wireClaims) GetSubject() (string, error)                  { return string(w.Sub), nil }
func (w wireClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func (w wireClaims) claims() Claims {
	c := Claims{
		Subject:  string(w.Sub),
		TenantID: string(w.TenantID),
		Role:     w.Role,
	}
	if w.Exp != nil {
		c.ExpiresAt = w.Exp.Time
	}
	if w.Iat != nil {
		c.IssuedAt = w.Iat.Time
	}
	return c
}

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return Claims{}, ErrNotJWT
	}
	var wc wireClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &wc); err != nil {
		return Claims{}, errors.Join(ErrNotJWT, err)
	}
	return wc.claims(), nil
}
