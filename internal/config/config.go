package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AuthProviderSupabase = "supabase"
	AuthProviderClerk    = "clerk"
)

type Config struct {
	Port     string
	LogLevel string
	WebDir   string

	DatabaseURL string

	AuthProvider           string
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseJWTSecret      string
	SupabaseServiceRoleKey string
	ClerkSecretKey         string

	// raw secrets kept in-memory only; never log these
	MonetizeWebhookSecret string
	RefundRevokesAccess   bool

	RedisURL string

	FCMCredentialsJSON string // base64 encoded service account
	FCMCredentialsFile string

	MetricsUser string
	MetricsPass string
	CORSOrigins []string
}

// Load reads the process environment, after merging a local .env file when
// one exists. Missing credentials are not an error: the server starts in
// disabled mode instead (see BackendConfigured).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                   getenvDefault("PORT", "3333"),
		LogLevel:               getenvDefault("LOG_LEVEL", "info"),
		WebDir:                 getenvDefault("WEB_DIR", "./web"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		AuthProvider:           strings.ToLower(getenvDefault("AUTH_PROVIDER", AuthProviderSupabase)),
		SupabaseURL:            os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:        os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseJWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		SupabaseServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		ClerkSecretKey:         os.Getenv("CLERK_SECRET_KEY"),
		MonetizeWebhookSecret:  os.Getenv("MONETIZE_WEBHOOK_SECRET"),
		RedisURL:               os.Getenv("REDIS_URL"),
		FCMCredentialsJSON:     os.Getenv("FCM_SERVICE_ACCOUNT_JSON"),
		FCMCredentialsFile:     getenvDefault("FCM_CREDENTIALS_FILE", "./serviceAccountKey.json"),
		MetricsUser:            os.Getenv("METRICS_USER"),
		MetricsPass:            os.Getenv("METRICS_PASS"),
	}

	switch cfg.AuthProvider {
	case AuthProviderSupabase, AuthProviderClerk:
	default:
		return Config{}, fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", AuthProviderSupabase, AuthProviderClerk, cfg.AuthProvider)
	}

	if raw := os.Getenv("REFUND_REVOKES_ACCESS"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, errors.New("REFUND_REVOKES_ACCESS must be a boolean")
		}
		cfg.RefundRevokesAccess = v
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

// AuthConfigured reports whether the selected identity provider has the
// secret it needs to verify sessions.
func (c Config) AuthConfigured() bool {
	switch c.AuthProvider {
	case AuthProviderClerk:
		return c.ClerkSecretKey != ""
	default:
		return c.SupabaseJWTSecret != ""
	}
}

// SupabaseProjectConfigured mirrors the client-side check of the hosted
// project: both URL and anon key present and the URL served over https.
func (c Config) SupabaseProjectConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != "" &&
		c.SupabaseURL != "undefined" && c.SupabaseAnonKey != "undefined" &&
		strings.HasPrefix(c.SupabaseURL, "https://")
}

func (c Config) BackendConfigured() bool {
	return c.DatabaseURL != "" && c.AuthConfigured()
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
