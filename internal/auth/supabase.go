package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const supabaseAudience = "authenticated"

type supabaseClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// SupabaseVerifier checks access tokens signed with the project's JWT
// secret.
type SupabaseVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewSupabaseVerifier(secret string) (*SupabaseVerifier, error) {
	if secret == "" {
		return nil, errors.New("supabase jwt secret is empty")
	}
	return &SupabaseVerifier{secret: []byte(secret), now: time.Now}, nil
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	var claims supabaseClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(supabaseAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if claims.Subject == "" || email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}

	s := &Session{Subject: claims.Subject, Email: email}
	if name, ok := claims.UserMetadata["name"].(string); ok {
		s.Name = name
	}
	return s, nil
}
