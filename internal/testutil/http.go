package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// TestSecret signs tokens in handler tests.
const TestSecret = "retrohub-test-secret-0123456789abcdef"

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithToken attaches a verified token to the request, as auth.LoadToken would.
func WithToken(r *http.Request, tok auth.Token) *http.Request {
	return r.WithContext(auth.WithToken(r.Context(), tok))
}

// BearerToken signs tok with TestSecret and returns the raw JWT.
func BearerToken(tok auth.Token) string {
	raw, err := auth.Issue(TestSecret, tok)
	if err != nil {
		panic(err)
	}
	return raw
}

// NewJSONRequest builds a request with a JSON body and the given socket ID.
func NewJSONRequest(method, target, body, socketID string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if socketID != "" {
		req.Header.Set("X-Socket-Id", socketID)
	}
	return req
}
