package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	AccessToken TokenType = "access"
	// RequestToken is a short-lived anti-replay token the identity provider
	// requires on registration. It carries no user.
	RequestToken TokenType = "request"
)

const issuer = "billeterie-maritime"

// ErrTokenExpired is returned when a token is well formed but past its expiry
var ErrTokenExpired = errors.New("token expired")

// Claims represents the JWT claims structure
type Claims struct {
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Service handles JWT operations
type Service struct {
	secret             string
	accessTokenExpiry  time.Duration
	requestTokenExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(secret string, accessExpiry, requestExpiry time.Duration) *Service {
	return &Service{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		requestTokenExpiry: requestExpiry,
	}
}

// AccessTokenExpiry returns the lifetime of issued access tokens
func (s *Service) AccessTokenExpiry() time.Duration {
	return s.accessTokenExpiry
}

// GenerateAccessToken generates a new access token for a user
func (s *Service) GenerateAccessToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID.String(),
		},
	}
	return s.sign(claims, "access")
}

// GenerateRequestToken generates a new registration request token
func (s *Service) GenerateRequestToken() (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: RequestToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.requestTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return s.sign(claims, "request")
}

func (s *Service) sign(claims Claims, kind string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return tokenString, nil
}

// ValidateAccessToken validates and parses an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, AccessToken)
}

// ValidateRequestToken validates and parses a registration request token
func (s *Service) ValidateRequestToken(tokenString string) (*Claims, error) {
	return s.validateToken(tokenString, RequestToken)
}

// validateToken validates a token with the given type
func (s *Service) validateToken(tokenString string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedType, claims.TokenType)
	}

	return claims, nil
}

// GetTokenExpiry returns the expiry time of a token without verifying it
func (s *Service) GetTokenExpiry(tokenString string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry time")
	}
	return claims.ExpiresAt.Time, nil
}
