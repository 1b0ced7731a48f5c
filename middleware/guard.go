package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/mkclient/token"
)

type claimsContextKey struct{}

// Verifier checks a bearer token. *token.Manager implements it.
type Verifier interface {
	Parse(raw string) (token.Claims, error)
}

// ClaimsFromContext returns the claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(token.Claims)
	return c, ok
}

// Guard rejects requests without a valid bearer token with 401. Expired tokens get
// {"reason":"expired","message":"Token expirado"}; anything else {"error":"unauthorized"}.
func Guard(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w, map[string]string{"error": "unauthorized"})
				return
			}
			claims, err := v.Parse(raw)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					writeUnauthorized(w, map[string]string{"reason": "expired", "message": "Token expirado"})
					return
				}
				writeUnauthorized(w, map[string]string{"error": "unauthorized"})
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	tok := strings.TrimSpace(value[len(bearer):])
	if tok == "" {
		return "", false
	}
	return tok, true
}

func writeUnauthorized(w http.ResponseWriter, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(body)
}
