package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, time.Hour, service.AccessTokenExpiry())
	assert.Equal(t, 10*time.Minute, service.requestTokenExpiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)
	userID := uuid.New()

	token, err := service.GenerateAccessToken(userID, "awa@example.sn")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "awa@example.sn", claims.Email)
	assert.Equal(t, AccessToken, claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestRequestToken(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)

	first, err := service.GenerateRequestToken()
	require.NoError(t, err)
	second, err := service.GenerateRequestToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	claims, err := service.ValidateRequestToken(first)
	require.NoError(t, err)
	assert.Equal(t, RequestToken, claims.TokenType)
	assert.Equal(t, uuid.Nil, claims.UserID)
}

func TestValidateToken_WrongType(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)

	requestToken, err := service.GenerateRequestToken()
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(requestToken)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token type")
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)
	other := NewService("another-secret", time.Hour, 10*time.Minute)

	token, err := other.GenerateAccessToken(uuid.New(), "awa@example.sn")
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	service := NewService(testSecret, -time.Minute, -time.Minute)

	token, err := service.GenerateRequestToken()
	require.NoError(t, err)

	_, err = service.ValidateRequestToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateToken_UnexpectedSigningMethod(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)

	claims := Claims{TokenType: AccessToken, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(tokenString)
	assert.Error(t, err)
}

func TestGetTokenExpiry(t *testing.T) {
	service := NewService(testSecret, time.Hour, 10*time.Minute)

	token, err := service.GenerateAccessToken(uuid.New(), "awa@example.sn")
	require.NoError(t, err)

	expiry, err := service.GetTokenExpiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	_, err = service.GetTokenExpiry("not-a-token")
	assert.Error(t, err)
}
