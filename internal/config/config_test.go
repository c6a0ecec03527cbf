package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "WEB_DIR", "DATABASE_URL", "AUTH_PROVIDER",
		"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_JWT_SECRET",
		"CLERK_SECRET_KEY", "REFUND_REVOKES_ACCESS", "CORS_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, AuthProviderSupabase, cfg.AuthProvider)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.RefundRevokesAccess)
	assert.False(t, cfg.BackendConfigured())
}

func TestLoad_BackendConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/falcao")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("REFUND_REVOKES_ACCESS", "true")
	t.Setenv("CORS_ORIGINS", "https://falcaopro.com, https://admin.falcaopro.com,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.BackendConfigured())
	assert.True(t, cfg.RefundRevokesAccess)
	assert.Equal(t, []string{"https://falcaopro.com", "https://admin.falcaopro.com"}, cfg.CORSOrigins)
}

func TestLoad_ClerkNeedsItsOwnSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/falcao")
	t.Setenv("AUTH_PROVIDER", "Clerk")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BackendConfigured())

	t.Setenv("CLERK_SECRET_KEY", "sk_test")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.BackendConfigured())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_PROVIDER", "auth0")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("REFUND_REVOKES_ACCESS", "sometimes")
	_, err = Load()
	assert.Error(t, err)
}

func TestSupabaseProjectConfigured(t *testing.T) {
	tests := []struct {
		url, key string
		want     bool
	}{
		{"https://abc.supabase.co", "anon", true},
		{"http://abc.supabase.co", "anon", false},
		{"undefined", "anon", false},
		{"https://abc.supabase.co", "", false},
	}
	for _, tt := range tests {
		cfg := Config{SupabaseURL: tt.url, SupabaseAnonKey: tt.key}
		assert.Equal(t, tt.want, cfg.SupabaseProjectConfigured(), tt.url)
	}
}
