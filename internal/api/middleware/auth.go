package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/cloo-solutions/contestgen/internal/api"
)

type contextKey string

const CallerKey contextKey = "caller"

// callerHeader carries the authenticated caller back out to AccessLog, which
// wraps the request before the auth group runs.
const callerHeader = "X-Caller"

var ErrInvalidToken = errors.New("invalid token")

// TokenValidator resolves a bearer token to the name of its caller.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// StaticToken accepts a single shared secret.
type StaticToken struct {
	Token  string
	Caller string
}

func (s StaticToken) ValidateToken(_ context.Context, token string) (string, error) {
	if s.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		return "", ErrInvalidToken
	}
	if s.Caller == "" {
		return "trigger", nil
	}
	return s.Caller, nil
}

func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			caller, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			r.Header.Set(callerHeader, caller)
			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetCaller(ctx context.Context) string {
	caller, _ := ctx.Value(CallerKey).(string)
	return caller
}
