package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/whisperservice/internal/config"
)

const testSecret = "s3cret-signing-key"

func signed(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(m *Middleware, header string) (*httptest.ResponseRecorder, *Principal) {
	var got *Principal
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			got = &p
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestDisabledPassesThrough(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{})
	require.Nil(t, m)

	rec, p := serve(m, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, p)
}

func TestAuthenticate(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{APIKey: "sk-local", JWTSecret: testSecret})
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMethod string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, ""},
		{"api key", "Bearer sk-local", http.StatusNoContent, "api_key"},
		{"lowercase scheme", "bearer sk-local", http.StatusNoContent, "api_key"},
		{"wrong api key", "Bearer sk-other", http.StatusUnauthorized, ""},
		{"valid jwt", "Bearer " + signed(t, testSecret, jwt.SigningMethodHS256, future), http.StatusNoContent, "jwt"},
		{"expired jwt", "Bearer " + signed(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute)), http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signed(t, "other", jwt.SigningMethodHS256, future), http.StatusUnauthorized, ""},
		{"hs512 rejected", "Bearer " + signed(t, testSecret, jwt.SigningMethodHS512, future), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, p := serve(m, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMethod == "" {
				assert.Nil(t, p)
				assert.Contains(t, rec.Body.String(), `"error"`)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantMethod, p.Method)
		})
	}
}

func TestJWTSubjectPropagated(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{JWTSecret: testSecret})
	_, p := serve(m, "Bearer "+signed(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)))
	require.NotNil(t, p)
	assert.Equal(t, "user-42", p.Subject)
}

func TestAPIKeyOnlyRejectsJWT(t *testing.T) {
	m := NewMiddleware(config.AuthConfig{APIKey: "sk-local"})
	rec, _ := serve(m, "Bearer "+signed(t, testSecret, jwt.SigningMethodHS256, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid API key")
}
