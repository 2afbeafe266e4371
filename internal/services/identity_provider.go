package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// IdentityProvider is the account backend the booking flow registers and logs in against
type IdentityProvider interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	RefreshToken(ctx context.Context) error
}

// UserStore defines the user persistence used by the identity provider
type UserStore interface {
	CreateUser(ctx context.Context, name, email string, phone *string, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PasswordIdentityProvider registers and authenticates email/password accounts.
// Registration is guarded by a short-lived request token; an expired or
// rotated token fails with models.ErrTokenMismatch until RefreshToken is called.
type PasswordIdentityProvider struct {
	users      UserStore
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger

	mu           sync.Mutex
	requestToken string
}

// NewPasswordIdentityProvider creates a new PasswordIdentityProvider
func NewPasswordIdentityProvider(users UserStore, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *PasswordIdentityProvider {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PasswordIdentityProvider{
		users:      users,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// RefreshToken rotates the registration request token
func (p *PasswordIdentityProvider) RefreshToken(ctx context.Context) error {
	token, err := p.jwtService.GenerateRequestToken()
	if err != nil {
		return fmt.Errorf("failed to refresh request token: %w", err)
	}
	p.mu.Lock()
	p.requestToken = token
	p.mu.Unlock()
	return nil
}

func (p *PasswordIdentityProvider) checkRequestToken(ctx context.Context) error {
	p.mu.Lock()
	token := p.requestToken
	p.mu.Unlock()

	if token == "" {
		return p.RefreshToken(ctx)
	}
	if _, err := p.jwtService.ValidateRequestToken(token); err != nil {
		p.logger.WithError(err).Debug("Registration request token rejected")
		return models.ErrTokenMismatch
	}
	return nil
}

// Register creates an account and opens a session for it
func (p *PasswordIdentityProvider) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	if err := p.checkRequestToken(ctx); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := p.users.CreateUser(ctx, req.Name, req.Email, req.Phone, string(hash))
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Account registered")

	return p.session(user)
}

// Login authenticates an email/password pair
func (p *PasswordIdentityProvider) Login(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := p.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != "active" {
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	return p.session(user)
}

func (p *PasswordIdentityProvider) session(user *models.User) (*models.Session, error) {
	accessToken, err := p.jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(p.jwtService.AccessTokenExpiry().Seconds()),
	}, nil
}
