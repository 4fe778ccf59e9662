package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestKeys(t *testing.T) (*rsa.PrivateKey, *Keys) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	keys, err := NewKeys(publicPEM)
	if err != nil {
		t.Fatalf("NewKeys() error = %v", err)
	}
	return privateKey, keys
}

func signToken(t *testing.T, privateKey *rsa.PrivateKey, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestValidateToken(t *testing.T) {
	privateKey, keys := newTestKeys(t)

	signed := signToken(t, privateKey, Claims{
		Roles: []string{RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := keys.ValidateToken(signed)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "ops-user" {
		t.Errorf("subject = %s, want ops-user", claims.Subject)
	}
	if !claims.HasRole(RoleAdmin) {
		t.Error("expected admin role")
	}
	if claims.HasRole(RoleUser) {
		t.Error("unexpected user role")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	privateKey, keys := newTestKeys(t)

	signed := signToken(t, privateKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if _, err := keys.ValidateToken(signed); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	_, keys := newTestKeys(t)

	signed := signToken(t, otherKey, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := keys.ValidateToken(signed); err == nil {
		t.Error("expected token signed with a different key to be rejected")
	}
}
