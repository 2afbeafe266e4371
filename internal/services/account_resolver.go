package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/sirupsen/logrus"
)

// AccountResolver establishes who is booking when the wizard leaves the
// identification step
type AccountResolver struct {
	provider IdentityProvider
	logger   *logrus.Logger
}

// NewAccountResolver creates a new AccountResolver
func NewAccountResolver(provider IdentityProvider, logger *logrus.Logger) *AccountResolver {
	return &AccountResolver{provider: provider, logger: logger}
}

// ResolveIdentity turns the identification input into an Identity. caller is
// the identity taken from the request's access token, nil when anonymous.
// The returned session is non-nil when an account was created or logged into.
func (r *AccountResolver) ResolveIdentity(ctx context.Context, caller *models.Identity, input *models.IdentityInput) (models.Identity, *models.Session, error) {
	if caller != nil && caller.IsAuthenticated() {
		if input != nil {
			input.CreateAccount = false
		}
		return *caller, nil, nil
	}
	if input == nil {
		return models.Identity{}, nil, models.NewValidationError("identity", "identification is required")
	}

	mode := input.Mode
	if input.CreateAccount {
		mode = models.ModeCreateAccount
	}

	switch mode {
	case models.ModeCreateAccount:
		return r.resolveRegistration(ctx, input)

	case models.ModeLogin:
		email := strings.TrimSpace(input.Email)
		if email == "" {
			return models.Identity{}, nil, models.NewValidationError("email", "email is required")
		}
		if input.Password == "" {
			return models.Identity{}, nil, models.NewValidationError("password", "password is required")
		}
		session, err := r.provider.Login(ctx, email, input.Password)
		if err != nil {
			return models.Identity{}, nil, err
		}
		return models.Authenticated(session.User.ID, session.User.Email), session, nil

	case models.ModeGuest:
		email := strings.TrimSpace(input.Email)
		if email == "" {
			return models.Identity{}, nil, models.NewValidationError("email", "contact email is required")
		}
		if !validEmail(email) {
			return models.Identity{}, nil, models.NewValidationError("email", "contact email is invalid")
		}
		return models.Guest(email, strings.TrimSpace(input.Phone)), nil, nil

	case models.ModeExistingAccount:
		return models.Identity{}, nil, models.ErrAuthRequired
	}

	return models.Identity{}, nil, models.NewValidationError("mode", fmt.Sprintf("unknown identification mode %q", input.Mode))
}

func (r *AccountResolver) resolveRegistration(ctx context.Context, input *models.IdentityInput) (models.Identity, *models.Session, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)

	switch {
	case name == "":
		return models.Identity{}, nil, models.NewValidationError("name", "name is required")
	case email == "":
		return models.Identity{}, nil, models.NewValidationError("email", "email is required")
	case !validEmail(email):
		return models.Identity{}, nil, models.NewValidationError("email", "email is invalid")
	case input.Password == "":
		return models.Identity{}, nil, models.NewValidationError("password", "password is required")
	}

	req := models.RegisterRequest{Name: name, Email: email, Password: input.Password}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		req.Phone = &phone
	}

	session, err := r.Register(ctx, req)
	if err != nil {
		return models.Identity{}, nil, err
	}

	// The account exists now; commit must not try to create it again.
	input.CreateAccount = false
	input.Mode = models.ModeExistingAccount
	input.Password = ""

	return models.Authenticated(session.User.ID, session.User.Email), session, nil
}

// Register creates an account, refreshing the provider token and retrying
// exactly once on a token mismatch
func (r *AccountResolver) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	session, err := r.provider.Register(ctx, req)
	if errors.Is(err, models.ErrTokenMismatch) {
		r.logger.WithField("email", req.Email).Warn("Registration token mismatch, refreshing and retrying once")
		if refreshErr := r.provider.RefreshToken(ctx); refreshErr != nil {
			return nil, fmt.Errorf("failed to refresh identity token: %w", refreshErr)
		}
		session, err = r.provider.Register(ctx, req)
	}
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return nil, &models.IdentityConflictError{Email: req.Email}
		}
		return nil, err
	}
	return session, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
