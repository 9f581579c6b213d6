package middleware

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiAihara/preppin-sub000/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "debug", Output: buf})
}

func TestLoggingAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := Logging(testLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schemas", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"request_id":"`+seen+`"`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2})(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "clients have separate buckets")

	disabled := RateLimit(RateLimitConfig{Enabled: false})(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute}, func() time.Time { return now })

	assert.True(t, limiters.allow("a"))
	assert.False(t, limiters.allow("a"))
	now = now.Add(2 * time.Minute)
	assert.True(t, limiters.allow("b"))
	_, kept := limiters.clients["a"]
	assert.False(t, kept)
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{Enabled: true, AllowedOrigins: []string{"https://app.example.com"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/schemas", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/schemas", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var maxErr *http.MaxBytesError
	assert.True(t, errors.As(readErr, &maxErr))

	readErr = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// oidcFixture serves discovery and JWKS documents over TLS and mints
// RS256 tokens signed by its key.
type oidcFixture struct {
	server *httptest.Server
	key    *rsa.PrivateKey
}

func newOIDCFixture(t *testing.T) *oidcFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &oidcFixture{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                f.server.URL,
			"jwks_uri":                              f.server.URL + "/jwks",
			"authorization_endpoint":                f.server.URL + "/authorize",
			"token_endpoint":                        f.server.URL + "/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	f.server = httptest.NewTLSServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *oidcFixture) token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "test-key"
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestOIDCAuth(t *testing.T) {
	f := newOIDCFixture(t)
	var buf bytes.Buffer
	mw, err := OIDCAuth(context.Background(), OIDCAuthConfig{
		Enabled:    true,
		IssuerURL:  f.server.URL,
		Audience:   "preppin",
		ClockSkew:  time.Second,
		HTTPClient: f.server.Client(),
	}, testLogger(&buf), nil)
	require.NoError(t, err)

	var subject string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := AuthFromContext(r.Context())
		require.True(t, ok)
		subject = auth.Subject
		w.WriteHeader(http.StatusOK)
	}))

	now := time.Now()
	valid := jwt.MapClaims{"iss": f.server.URL, "aud": "preppin", "sub": "user-1", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + f.token(t, valid), status: http.StatusOK},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "wrong audience", header: "Bearer " + f.token(t, jwt.MapClaims{
			"iss": f.server.URL, "aud": "other", "sub": "user-1", "exp": now.Add(time.Hour).Unix(),
		}), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + f.token(t, jwt.MapClaims{
			"iss": f.server.URL, "aud": "preppin", "sub": "user-1", "exp": now.Add(-time.Hour).Unix(),
		}), status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not.a.jwt", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodGet, "/v1/schemas", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user-1", subject)
			} else {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestOIDCAuthConfigErrors(t *testing.T) {
	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	mw, err := OIDCAuth(context.Background(), OIDCAuthConfig{}, logger, nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = OIDCAuth(context.Background(), OIDCAuthConfig{Enabled: true, IssuerURL: "https://issuer.example.com"}, logger, nil)
	assert.ErrorContains(t, err, "issuer/audience")

	_, err = OIDCAuth(context.Background(), OIDCAuthConfig{Enabled: true, IssuerURL: "http://issuer.example.com", Audience: "x"}, logger, nil)
	assert.ErrorContains(t, err, "https")
}

func TestValidateTimeClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	skew := time.Minute
	tests := []struct {
		name    string
		claims  map[string]interface{}
		wantErr bool
	}{
		{name: "no claims", claims: map[string]interface{}{}},
		{name: "expired within skew", claims: map[string]interface{}{"exp": float64(now.Unix() - 30)}},
		{name: "expired past skew", claims: map[string]interface{}{"exp": float64(now.Unix() - 120)}, wantErr: true},
		{name: "not yet valid", claims: map[string]interface{}{"nbf": json.Number("1700000300")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTimeClaims(tt.claims, skew, now)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
