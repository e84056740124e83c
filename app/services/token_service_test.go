package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		testSecret,
	)
}

func generateTestRSAKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	return string(priv), string(pub)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		ttl         time.Duration
		useRSAKeys  bool
		private     string
		public      string
		secret      string
		expectError bool
	}{
		{name: "valid HMAC configuration", ttl: 15 * time.Minute, secret: testSecret},
		{name: "missing secret key", ttl: 15 * time.Minute, expectError: true},
		{name: "non positive ttl", ttl: 0, secret: testSecret, expectError: true},
		{name: "RSA without keys", ttl: 15 * time.Minute, useRSAKeys: true, expectError: true},
		{name: "RSA with garbage keys", ttl: 15 * time.Minute, useRSAKeys: true, private: "nope", public: "nope", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(tt.ttl, "issuer", "audience", tt.useRSAKeys, tt.private, tt.public, tt.secret)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	token, err := service.GenerateToken("viewer-123", utils.ViewerRoleCustomer)
	require.NoError(t, err)
	assert.Contains(t, token, "eyJ")

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "viewer-123", claims.Subject)
	assert.Equal(t, utils.ViewerRoleCustomer, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

	_, err = service.GenerateToken("", utils.ViewerRoleCustomer)
	assert.Error(t, err)
}

func TestGenerateAndValidateTokenRSA(t *testing.T) {
	priv, pub := generateTestRSAKeys(t)
	service, err := NewTokenService(time.Minute, "issuer", "audience", true, priv, pub, "")
	require.NoError(t, err)

	token, err := service.GenerateToken("admin-1", utils.ViewerRoleAdmin)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, utils.ViewerRoleAdmin, claims.Role)
}

func TestValidateTokenRejections(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	other, err := NewTokenService(15*time.Minute, "other-issuer", "test-audience", false, "", "", testSecret)
	require.NoError(t, err)
	foreignIssuer, err := other.GenerateToken("viewer-1", utils.ViewerRoleGuest)
	require.NoError(t, err)

	wrongKey, err := NewTokenService(15*time.Minute, "test-issuer", "test-audience", false, "", "", "a-completely-different-secret-key-value")
	require.NoError(t, err)
	badSignature, err := wrongKey.GenerateToken("viewer-1", utils.ViewerRoleGuest)
	require.NoError(t, err)

	now := utils.UTCNow()
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: utils.ViewerRoleGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "viewer-1",
			ID:        "expired-id",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		expected error
	}{
		{name: "empty token", token: "", expected: ErrTokenInvalid},
		{name: "invalid token format", token: "invalid.token.format", expected: ErrTokenInvalid},
		{name: "wrong issuer", token: foreignIssuer, expected: ErrTokenInvalid},
		{name: "wrong signature", token: badSignature, expected: ErrTokenInvalid},
		{name: "expired token", token: expired, expected: ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, claims)
		})
	}
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	token, err := service.GenerateToken("viewer-9", utils.ViewerRoleCustomer)
	require.NoError(t, err)
	claims, err := service.ValidateToken(token)
	require.NoError(t, err)

	assert.False(t, service.IsTokenRevoked(claims.TokenID))
	require.NoError(t, service.RevokeToken(token))
	assert.True(t, service.IsTokenRevoked(claims.TokenID))

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.Error(t, service.RevokeToken("garbage"))
}
