// Package middleware provides HTTP middleware for service authentication.
package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jonathan/campus-agents/internal/config"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// subjectKey is the context key for the authenticated caller.
const subjectKey ContextKey = "subject"

// ServiceSubject is the subject reported for shared-secret tokens.
const ServiceSubject = "service"

// ErrInvalidToken is returned by validators that reject a token.
var ErrInvalidToken = errors.New("invalid service token")

// TokenValidator checks a bearer token and returns the caller's subject.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

// StaticToken accepts a single shared token, compared in constant time.
type StaticToken string

// ValidateToken implements TokenValidator.
func (t StaticToken) ValidateToken(tokenString string) (string, error) {
	if t == "" || subtle.ConstantTimeCompare([]byte(t), []byte(tokenString)) != 1 {
		return "", ErrInvalidToken
	}
	return ServiceSubject, nil
}

// HashedToken accepts tokens matching a bcrypt hash, so the plain token
// never has to be stored in the service's environment.
type HashedToken string

// ValidateToken implements TokenValidator.
func (h HashedToken) ValidateToken(tokenString string) (string, error) {
	if !config.VerifyToken(tokenString, string(h)) {
		return "", ErrInvalidToken
	}
	return ServiceSubject, nil
}

// AnyOf accepts a token when any of its validators does. Validators are
// tried in order.
type AnyOf []TokenValidator

// ValidateToken implements TokenValidator.
func (a AnyOf) ValidateToken(tokenString string) (string, error) {
	err := ErrInvalidToken
	for _, v := range a {
		subject, verr := v.ValidateToken(tokenString)
		if verr == nil {
			return subject, nil
		}
		err = verr
	}
	return "", err
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's subject in the request context. A nil validator disables the
// check.
func AuthMiddleware(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.Warn("unauthorized request: missing bearer token", "path", r.URL.Path)
				unauthorized(w)
				return
			}

			subject, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("unauthorized request: invalid token", "path", r.URL.Path, "error", err)
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken parses "Bearer <token>" with a case-insensitive scheme.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":     false,
		"error":       "Unauthorized",
		"status_code": http.StatusUnauthorized,
	})
}

// Subject returns the authenticated caller stored by AuthMiddleware.
func Subject(r *http.Request) (string, bool) {
	subject, ok := r.Context().Value(subjectKey).(string)
	return subject, ok
}
