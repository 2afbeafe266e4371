package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccountRegistrar creates accounts (AccountResolver retries token mismatches once)
type AccountRegistrar interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error)
}

// AccountAuthenticator logs accounts in
type AccountAuthenticator interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
}

// AuthHandler exposes the identity provider over HTTP
type AuthHandler struct {
	registrar     AccountRegistrar
	authenticator AccountAuthenticator
	logger        *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(registrar AccountRegistrar, authenticator AccountAuthenticator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{registrar: registrar, authenticator: authenticator, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	session, err := h.registrar.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithField("user_id", session.User.ID).Info("User registered")
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.authenticator.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
