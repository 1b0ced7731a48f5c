package api

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/MrEthical07/mkclient/session"
)

// MinSecretLength is the shortest password the backend accepts at registration.
const MinSecretLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Auth is the authentication resource. It implements session.Authenticator.
type Auth struct {
	c *Client
}

var _ session.Authenticator = (*Auth)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string `json:"token"`
	Role         string `json:"role"`
	TenantStatus string `json:"tenant_status"`
}

// Login exchanges an email and password for a token.
func (a *Auth) Login(ctx context.Context, identifier, secret string) (session.LoginResult, error) {
	var out loginResponse
	err := a.c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{
		Email:    normalizeEmail(identifier),
		Password: secret,
	}, &out)
	if err != nil {
		return session.LoginResult{}, err
	}
	return session.LoginResult{
		Token:        out.Token,
		Role:         out.Role,
		TenantStatus: session.ParseTenantStatus(out.TenantStatus),
	}, nil
}

// Identity is the body of the identity-check endpoint.
type Identity struct {
	OK       bool   `json:"ok"`
	Subject  any    `json:"sub"`
	TenantID any    `json:"tenant_id"`
	Role     string `json:"role"`
}

// Me calls the identity-check endpoint.
func (a *Auth) Me(ctx context.Context) (Identity, error) {
	var out Identity
	err := a.c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out)
	return out, err
}

// Verify reports whether the identity-check endpoint confirms the session.
func (a *Auth) Verify(ctx context.Context) (bool, error) {
	id, err := a.Me(ctx)
	if err != nil {
		return false, err
	}
	return id.OK, nil
}

// RegisterInput is a new tenant administrator.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Validate applies the backend's field rules locally.
func (in RegisterInput) Validate() error {
	email := normalizeEmail(in.Email)
	switch {
	case email == "":
		return ErrIdentifierRequired
	case !emailPattern.MatchString(email):
		return ErrIdentifierInvalid
	case len(in.Password) < MinSecretLength:
		return ErrWeakSecret
	}
	return nil
}

// Register creates a tenant and its administrator. Field errors are returned both from
// local validation and from the backend, matched with errors.Is against
// ErrIdentifierRequired, ErrIdentifierInvalid, ErrIdentifierTaken and ErrWeakSecret.
func (a *Auth) Register(ctx context.Context, in RegisterInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	return a.c.do(ctx, http.MethodPost, "/auth/register", nil, in, nil)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
