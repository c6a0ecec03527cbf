package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
)

// ClerkVerifier verifies Clerk session tokens. Clerk tokens carry no email,
// so the primary address is looked up through the backend API.
type ClerkVerifier struct{}

func NewClerkVerifier(secretKey string) (*ClerkVerifier, error) {
	if secretKey == "" {
		return nil, errors.New("clerk secret key is empty")
	}
	clerk.SetKey(secretKey)
	return &ClerkVerifier{}, nil
}

func (v *ClerkVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := clerkjwt.Verify(ctx, &clerkjwt.VerifyParams{
		Token: token,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	u, err := clerkuser.Get(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clerk user %s: %w", claims.Subject, err)
	}

	email := primaryEmail(u)
	if email == "" {
		return nil, fmt.Errorf("%w: clerk user %s has no email", ErrInvalidToken, claims.Subject)
	}

	s := &Session{Subject: claims.Subject, Email: email}
	if u.FirstName != nil {
		s.Name = strings.TrimSpace(*u.FirstName)
	}
	return s, nil
}

func primaryEmail(u *clerk.User) string {
	var fallback string
	for _, e := range u.EmailAddresses {
		if e == nil {
			continue
		}
		if fallback == "" {
			fallback = e.EmailAddress
		}
		if u.PrimaryEmailAddressID != nil && e.ID == *u.PrimaryEmailAddressID {
			return strings.ToLower(e.EmailAddress)
		}
	}
	return strings.ToLower(fallback)
}
