package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// IdentityContextKey is the key the caller identity is stored under in the gin context
const IdentityContextKey = "identity"

// AuthMiddleware rejects requests without a valid access token
func AuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithFields(logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}).Warn("Auth failed: missing authorization header")
			abortUnauthorized(c, "unauthorized", "MISSING_AUTH_HEADER", "Authorization header is required")
			return
		}
		authenticate(c, jwtService, logger, authHeader)
	}
}

// OptionalAuth sets the caller identity when a token is present. Anonymous
// requests pass through; a present but invalid token is still rejected.
func OptionalAuth(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		authenticate(c, jwtService, logger, authHeader)
	}
}

func authenticate(c *gin.Context, jwtService *jwt.Service, logger *logrus.Logger, authHeader string) {
	fields := logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		logger.WithFields(fields).Warn("Auth failed: invalid authorization header format")
		abortUnauthorized(c, "unauthorized", "INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>")
		return
	}

	claims, err := jwtService.ValidateAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("Auth failed: token rejected")
		if errors.Is(err, jwt.ErrTokenExpired) {
			abortUnauthorized(c, "token_expired", "TOKEN_EXPIRED", "Access token has expired. Please log in again.")
		} else {
			abortUnauthorized(c, "invalid_token", "INVALID_TOKEN", "Invalid access token")
		}
		return
	}

	identity := models.Authenticated(claims.UserID, claims.Email)
	c.Set(IdentityContextKey, identity)
	c.Set("user_id", claims.UserID.String())
	c.Next()
}

func abortUnauthorized(c *gin.Context, errCode, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errCode,
		"message": message,
		"code":    code,
	})
}

// GetIdentity returns the authenticated caller, nil for anonymous requests
func GetIdentity(c *gin.Context) *models.Identity {
	value, exists := c.Get(IdentityContextKey)
	if !exists {
		return nil
	}
	identity, ok := value.(models.Identity)
	if !ok {
		return nil
	}
	return &identity
}
