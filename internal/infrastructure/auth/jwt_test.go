package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	token, err := svc.Generate(userID, "operator")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	claims, err := svc.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestJWTService()
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.Generate(uuid.New(), "operator")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := newTestJWTService().Generate(uuid.New(), "operator")
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret:                "another-secret-key-of-32-characters",
		AccessTokenExpiration: time.Minute,
		Issuer:                "test-issuer",
	})
	_, err = other.Validate(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongIssuer(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.Generate(uuid.New(), "operator")
	require.NoError(t, err)

	svc.issuer = "someone-else"
	_, err = svc.Validate(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	_, err := newTestJWTService().Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_MissingUserID(t *testing.T) {
	svc := newTestJWTService()
	now := time.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		UserID: uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
