package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Subject", SubjectFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "https://cdn.jsdelivr.net")
}

func TestSecurityHeaders_ChainedWithRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		_, _ = w.Write([]byte("ok"))
	})
	handler := Chain(inner, SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), seen)

	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.Header.Set("X-Request-ID", "req-client")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "req-client", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`, w.Body.String())
}

func signToken(t *testing.T, secret, issuer, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	cfg := AuthConfig{
		APIKeys:      []string{"key-1"},
		JWTSecret:    "s3cret",
		JWTIssuer:    "tripcrew",
		SkipPaths:    []string{"/health"},
		SkipPrefixes: []string{"/static/"},
	}
	handler := Auth(cfg, zap.NewNop())(okHandler())
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name        string
		path        string
		apiKey      string
		bearer      string
		wantStatus  int
		wantSubject string
	}{
		{name: "skip path", path: "/health", wantStatus: http.StatusOK},
		{name: "skip prefix", path: "/static/css/style.css", wantStatus: http.StatusOK},
		{name: "missing credentials", path: "/api/plan", wantStatus: http.StatusUnauthorized},
		{name: "valid api key", path: "/api/plan", apiKey: "key-1", wantStatus: http.StatusOK, wantSubject: "api-key"},
		{name: "invalid api key", path: "/api/plan", apiKey: "nope", wantStatus: http.StatusUnauthorized},
		{name: "valid jwt", path: "/api/plan", bearer: signToken(t, "s3cret", "tripcrew", "alice", future), wantStatus: http.StatusOK, wantSubject: "alice"},
		{name: "wrong secret", path: "/api/plan", bearer: signToken(t, "other", "tripcrew", "alice", future), wantStatus: http.StatusUnauthorized},
		{name: "wrong issuer", path: "/api/plan", bearer: signToken(t, "s3cret", "someone", "alice", future), wantStatus: http.StatusUnauthorized},
		{name: "expired", path: "/api/plan", bearer: signToken(t, "s3cret", "tripcrew", "alice", time.Now().Add(-time.Minute)), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.apiKey != "" {
				r.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.bearer != "" {
				r.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantSubject, w.Header().Get("X-Subject"))
			} else {
				assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestAuth_DisabledWithoutCredentials(t *testing.T) {
	handler := Auth(AuthConfig{}, zap.NewNop())(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/plan", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimiter(ctx, 0.001, 2, zap.NewNop())(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 不同 IP 互不影响
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://trip.example"})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/itineraries", nil)
	r.Header.Set("Origin", "https://trip.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "https://trip.example", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/plan", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/plan", nil)
	r.Header.Set("Origin", "https://trip.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/plan":       "/api/plan",
		"/static/js/x.js": "/static/*",
		"/api/itineraries/0b6f3f3e-1111-4c1e-9a51-2f1d6c9d2a01": "/api/itineraries/:id",
		"/api/itineraries/42":                                   "/api/itineraries/:id",
		"/api/itineraries/recent":                               "/api/itineraries/recent",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
