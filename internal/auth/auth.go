// Package auth verifies session tokens issued by the external identity
// provider. It never issues tokens itself.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// SessionCookie is the cookie the hosted auth helpers store the access
// token in.
const SessionCookie = "sb-access-token"

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
)

type Session struct {
	Subject string
	Email   string
	Name    string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Session, error)
}

// TokenFromRequest prefers the Authorization header and falls back to the
// session cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		token := strings.TrimPrefix(h, "Bearer ")
		if token == h || strings.TrimSpace(token) == "" {
			return "", ErrInvalidToken
		}
		return strings.TrimSpace(token), nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", ErrNoToken
}
