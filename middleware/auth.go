package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"falcaoProAPI/internal/auth"
	"falcaoProAPI/internal/payment"
	"falcaoProAPI/internal/types/user"
	"falcaoProAPI/services"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	userKey    contextKey = "user"
	paymentKey contextKey = "paymentStatus"
)

// PaymentStatusHeader carries the evaluated status on guarded page responses.
const PaymentStatusHeader = "X-Payment-Status"

// UserResolver maps a verified session to the application's user row.
// GetUserByEmail must return services.ErrUserNotFound for a missing row.
type UserResolver interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	EnsureUser(ctx context.Context, sess *auth.Session) (*user.User, error)
}

type SessionGuard struct {
	verifier auth.Verifier
	users    UserResolver
	now      func() time.Time
	logger   *slog.Logger
}

func NewSessionGuard(verifier auth.Verifier, users UserResolver, logger *slog.Logger) *SessionGuard {
	return &SessionGuard{
		verifier: verifier,
		users:    users,
		now:      time.Now,
		logger:   logger,
	}
}

// resolve never fails: any lookup error is logged and reported as no session.
func (g *SessionGuard) resolve(r *http.Request) (*auth.Session, *user.User, bool) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		if !errors.Is(err, auth.ErrNoToken) {
			g.logger.Debug("malformed session token", "path", r.URL.Path, "error", err)
		}
		return nil, nil, false
	}

	sess, err := g.verifier.Verify(r.Context(), token)
	if err != nil {
		g.logger.Info("session verification failed", "path", r.URL.Path, "error", err)
		return nil, nil, false
	}

	u, err := g.users.GetUserByEmail(r.Context(), sess.Email)
	if errors.Is(err, services.ErrUserNotFound) || (err == nil && u.Name == "" && sess.Name != "") {
		u, err = g.users.EnsureUser(r.Context(), sess)
	}
	if err != nil {
		g.logger.Error("session user lookup failed", "subject", sess.Subject, "error", err)
		return nil, nil, false
	}
	return sess, u, true
}

func withIdentity(r *http.Request, sess *auth.Session, u *user.User) *http.Request {
	ctx := context.WithValue(r.Context(), sessionKey, sess)
	ctx = context.WithValue(ctx, userKey, u)
	return r.WithContext(ctx)
}

// RequireSession rejects API calls without a valid session.
func (g *SessionGuard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, u, ok := g.resolve(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, withIdentity(r, sess, u))
	})
}

// RequireAdmin must run after RequireSession.
func (g *SessionGuard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetUser(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !u.IsAdmin {
			respondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActiveSubscription blocks non-admins whose subscription is past
// the grace period. Must run after RequireSession.
func (g *SessionGuard) RequireActiveSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := GetUser(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if u.IsAdmin {
			next.ServeHTTP(w, r)
			return
		}

		status := payment.Evaluate(u.SubscriptionEndDate, g.now())
		w.Header().Set(PaymentStatusHeader, string(status.Status))
		if !status.IsActive {
			respondWithJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":   "Subscription inactive",
				"payment": status,
			})
			return
		}

		ctx := context.WithValue(r.Context(), paymentKey, status)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isAdminPath(p string) bool {
	return p == "/admin" || strings.HasPrefix(p, "/admin/")
}

// Pages applies the redirect rules of the three page routes.
func (g *SessionGuard) Pages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		sess, u, ok := g.resolve(r)

		if !ok {
			if path == "/" || isAdminPath(path) {
				http.Redirect(w, r, "/auth", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		switch {
		case path == "/auth":
			if u.IsAdmin {
				http.Redirect(w, r, "/admin", http.StatusFound)
			} else {
				http.Redirect(w, r, "/", http.StatusFound)
			}
			return
		case isAdminPath(path) && !u.IsAdmin:
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		r = withIdentity(r, sess, u)
		if path == "/" && !u.IsAdmin {
			status := payment.Evaluate(u.SubscriptionEndDate, g.now())
			w.Header().Set(PaymentStatusHeader, string(status.Status))
			r = r.WithContext(context.WithValue(r.Context(), paymentKey, status))
		}
		next.ServeHTTP(w, r)
	})
}

func GetSession(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*auth.Session)
	return s, ok
}

func GetUser(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey).(*user.User)
	return u, ok && u != nil
}

// GetPaymentStatus is set for non-admins by RequireActiveSubscription and
// by Pages on "/".
func GetPaymentStatus(ctx context.Context) (payment.Status, bool) {
	s, ok := ctx.Value(paymentKey).(payment.Status)
	return s, ok
}

// WithUser attaches an authenticated user, as the guard does.
func WithUser(ctx context.Context, u *user.User) context.Context {
	ctx = context.WithValue(ctx, sessionKey, &auth.Session{Subject: u.ID, Email: u.Email})
	return context.WithValue(ctx, userKey, u)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
