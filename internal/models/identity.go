package models

import (
	"strings"

	"github.com/google/uuid"
)

// IdentityKind represents who is making a booking attempt
type IdentityKind string

const (
	IdentityAuthenticated       IdentityKind = "authenticated"
	IdentityPendingRegistration IdentityKind = "pending_registration"
	IdentityGuest               IdentityKind = "guest"
)

// IdentityMode is the choice the caller made on the identification step
type IdentityMode string

const (
	ModeExistingAccount IdentityMode = "existing_account"
	ModeCreateAccount   IdentityMode = "create_account"
	ModeGuest           IdentityMode = "guest"
	ModeLogin           IdentityMode = "login"
)

// Identity is exactly one of Authenticated, PendingRegistration or Guest.
// Password is never serialized.
type Identity struct {
	Kind     IdentityKind `json:"kind"`
	UserID   *uuid.UUID   `json:"user_id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Email    string       `json:"email,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Password string       `json:"-"`
}

// Authenticated builds an identity for a logged-in user
func Authenticated(userID uuid.UUID, email string) Identity {
	return Identity{Kind: IdentityAuthenticated, UserID: &userID, Email: email}
}

// PendingRegistration builds an identity for a caller who asked to create an account
func PendingRegistration(name, email, password string) Identity {
	return Identity{Kind: IdentityPendingRegistration, Name: name, Email: email, Password: password}
}

// Guest builds an identity for a caller identified only by contact details
func Guest(email, phone string) Identity {
	return Identity{Kind: IdentityGuest, Email: email, Phone: phone}
}

// IsAuthenticated reports whether the identity maps to a user account
func (i Identity) IsAuthenticated() bool {
	return i.Kind == IdentityAuthenticated && i.UserID != nil
}

// ContactEmail returns the email tickets are issued to
func (i Identity) ContactEmail() string {
	return strings.TrimSpace(i.Email)
}

// IdentityInput is the identification step as submitted by the client
type IdentityInput struct {
	Mode          IdentityMode `json:"mode"`
	Name          string       `json:"name,omitempty"`
	Email         string       `json:"email,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	Password      string       `json:"password,omitempty"`
	CreateAccount bool         `json:"create_account,omitempty"`
}

// Session is returned by the identity provider after login or registration
type Session struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
