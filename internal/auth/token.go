// Package auth issues and verifies the host credential for a session.
// The original product inferred "is host" client-side; here every host-only
// command must present a server-signed token bound to the session ID.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
)

const hostRole = "host"

// TokenIssuer signs and verifies HS256 host tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

type hostClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue returns the host token for a session, minted once at creation.
func (i *TokenIssuer) Issue(sessionID string) (string, error) {
	claims := hostClaims{
		Role: hostRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sessionID,
			IssuedAt: jwt.NewNumericDate(i.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign host token: %w", err)
	}
	return signed, nil
}

// Verify checks that the token is a valid host credential for sessionID.
// Any failure maps to ErrForbidden; callers never learn why a token was bad.
func (i *TokenIssuer) Verify(token, sessionID string) error {
	claims := &hostClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.ErrForbidden
	}
	if claims.Role != hostRole || claims.Subject != sessionID {
		return domain.ErrForbidden
	}
	return nil
}
