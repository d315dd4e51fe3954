package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret-at-least-thirty-two-chars!"

func TestIssueParse(t *testing.T) {
	raw, err := Issue(testSecret, Token{UserID: "u1", TeamIDs: []string{"t1", "t2"}, Expiry: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tok, err := Parse(testSecret, raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tok.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", tok.UserID)
	}
	if !reflect.DeepEqual(tok.TeamIDs, []string{"t1", "t2"}) {
		t.Errorf("TeamIDs = %v", tok.TeamIDs)
	}
}

func TestParse_Rejects(t *testing.T) {
	expired, _ := Issue(testSecret, Token{UserID: "u1", Expiry: time.Now().Add(-time.Minute)})
	wrongKey, _ := Issue("another-secret-another-secret-123", Token{UserID: "u1"})
	noSubject, _ := Issue(testSecret, Token{})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name string
		raw  string
	}{
		{"expired", expired},
		{"wrong key", wrongKey},
		{"no subject", noSubject},
		{"alg none", none},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(testSecret, tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestLoadToken(t *testing.T) {
	raw, _ := Issue(testSecret, Token{UserID: "u1", TeamIDs: []string{"t1"}})

	var seen Token
	var found bool
	h := LoadToken(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, found = CurrentToken(r)
	}))

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		target  string
		want    bool
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) }, "/", true},
		{"query param", func(r *http.Request) {}, "/?token=" + raw, true},
		{"missing", func(r *http.Request) {}, "/", false},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, "/", false},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+raw) }, "/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, found = Token{}, false
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.prepare(req)
			h.ServeHTTP(httptest.NewRecorder(), req)
			if found != tt.want {
				t.Fatalf("found = %v, want %v", found, tt.want)
			}
			if tt.want && seen.UserID != "u1" {
				t.Errorf("UserID = %q", seen.UserID)
			}
		})
	}
}

func TestRequireSignedIn(t *testing.T) {
	h := RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithToken(req.Context(), Token{UserID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("signed in: status = %d, want 204", rec.Code)
	}
}
