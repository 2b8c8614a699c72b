// Package identity resolves the caller behind a request. The caller id is
// what the protection gateway checks against field allow-lists and what
// access events record.
package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fintrail/audita/internal/common"
)

// Claims holds the registered claims plus our caller id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// Provider resolves a bearer token to a caller id.
type Provider interface {
	VerifyCaller(tokenString string) (string, error)
}

// JWTProvider signs and verifies HS256 tokens.
type JWTProvider struct {
	secretKey []byte
	validity  time.Duration
}

func NewJWTProvider(secretKey []byte, validity time.Duration) *JWTProvider {
	return &JWTProvider{secretKey: secretKey, validity: validity}
}

func (p *JWTProvider) GenerateToken(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.validity)),
		},
		UserID: userID,
	})
	return token.SignedString(p.secretKey)
}

func (p *JWTProvider) VerifyCaller(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
