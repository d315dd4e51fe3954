package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature, method, or
// expiry checks.
var ErrInvalidToken = errors.New("invalid auth token")

// Token is the verified identity attached to a request.
// TeamIDs ("tms") is the set of teams the caller belongs to.
type Token struct {
	UserID  string
	TeamIDs []string
	Expiry  time.Time
}

type claims struct {
	Teams []string `json:"tms"`
	jwt.RegisteredClaims
}

// Issue signs tok with HS256.
func Issue(secret string, tok Token) (string, error) {
	if secret == "" {
		return "", errors.New("auth secret is empty")
	}
	c := claims{
		Teams: tok.TeamIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  tok.UserID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if !tok.Expiry.IsZero() {
		c.ExpiresAt = jwt.NewNumericDate(tok.Expiry)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// Parse verifies raw and returns the token it carries.
func Parse(secret, raw string) (Token, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Token{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	tok := Token{UserID: c.Subject, TeamIDs: c.Teams}
	if c.ExpiresAt != nil {
		tok.Expiry = c.ExpiresAt.Time
	}
	return tok, nil
}
