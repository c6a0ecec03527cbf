package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"falcaoProAPI/internal/auth"
	"falcaoProAPI/internal/config"
	"falcaoProAPI/internal/logging"
	"falcaoProAPI/middleware"
)

type countingVerifier struct {
	calls int
}

func (v *countingVerifier) Verify(ctx context.Context, token string) (*auth.Session, error) {
	v.calls++
	return nil, auth.ErrInvalidToken
}

func TestRouter_StaticSkipsSessionLookup(t *testing.T) {
	webDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(webDir, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(webDir, "static", "app.css"), []byte("body{}"), 0o644))

	verifier := &countingVerifier{}
	a := &app{
		cfg:    config.Config{WebDir: webDir},
		logger: logging.Discard(),
		guard:  middleware.NewSessionGuard(verifier, nil, logging.Discard()),
	}
	r := a.router()

	req := httptest.NewRequest(http.MethodGet, "/static/app.css", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "body{}", rr.Body.String())
	assert.Zero(t, verifier.calls)

	req = httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, verifier.calls)
}
