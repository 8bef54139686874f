// Package auth guards the /v1 routes with an optional bearer credential.
// A request passes when its token equals the configured API key or is an
// HS256 JWT signed with the configured secret.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhilbhutani/whisperservice/internal/config"
)

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Principal identifies who made an authenticated request.
type Principal struct {
	Subject string
	Method  string // "api_key" or "jwt"
}

type Middleware struct {
	apiKeyHash [32]byte
	hasAPIKey  bool
	secret     []byte
}

// NewMiddleware returns nil when cfg has no credentials configured.
func NewMiddleware(cfg config.AuthConfig) *Middleware {
	if !cfg.Enabled() {
		return nil
	}
	m := &Middleware{}
	if cfg.APIKey != "" {
		m.apiKeyHash = sha256.Sum256([]byte(cfg.APIKey))
		m.hasAPIKey = true
	}
	if cfg.JWTSecret != "" {
		m.secret = []byte(cfg.JWTSecret)
	}
	return m
}

// Authenticate passes requests straight through on a nil Middleware.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		p, err := m.verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (m *Middleware) verify(token string) (Principal, error) {
	if m.hasAPIKey {
		h := sha256.Sum256([]byte(token))
		if subtle.ConstantTimeCompare(h[:], m.apiKeyHash[:]) == 1 {
			return Principal{Subject: "api_key", Method: "api_key"}, nil
		}
	}

	if m.secret == nil {
		return Principal{}, fmt.Errorf("invalid API key")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	return Principal{Subject: claims.Subject, Method: "jwt"}, nil
}

type ctxKey string

const principalKey ctxKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
