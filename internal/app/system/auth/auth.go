package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ctxKey string

const tokenKey ctxKey = "authToken"

// CurrentToken returns the verified token & "found?" flag.
func CurrentToken(r *http.Request) (Token, bool) {
	return FromContext(r.Context())
}

// FromContext returns the token stored by LoadToken.
func FromContext(ctx context.Context) (Token, bool) {
	tok, ok := ctx.Value(tokenKey).(Token)
	return tok, ok
}

// WithToken returns a copy of ctx carrying tok.
func WithToken(ctx context.Context, tok Token) context.Context {
	return context.WithValue(ctx, tokenKey, tok)
}

// LoadToken verifies the bearer token (Authorization header, or the "token"
// query parameter for WebSocket clients) and injects it into the context.
// Requests without a valid token continue anonymously.
func LoadToken(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := rawToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			tok, err := Parse(secret, raw)
			if err != nil {
				logger.Debug("rejecting auth token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), tok)))
		})
	}
}

// RequireSignedIn answers 401 when LoadToken found no valid token.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentToken(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rawToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, rest, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
