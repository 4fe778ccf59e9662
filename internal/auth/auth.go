package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

// ClaimsKey is the request-context key the authentication middleware
// stores the verified claims under.
const ClaimsKey ctxKey = 1

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Claims is the payload of the bearer tokens issued by the user
// service. Roles gate access to the operator endpoints.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries the given role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Keys holds the public key used to verify inbound tokens.
type Keys struct {
	publicKey *rsa.PublicKey
}

func NewKeys(publicPEM []byte) (*Keys, error) {
	if len(publicPEM) == 0 {
		return nil, errors.New("public key pem is empty")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing rsa public key: %w", err)
	}
	return &Keys{publicKey: publicKey}, nil
}

// ValidateToken verifies the signature and standard claims of a bearer
// token and returns the embedded claims.
func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return k.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}
