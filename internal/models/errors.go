package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAuthRequired is returned when the caller claims an account but is not logged in
	ErrAuthRequired = errors.New("authentication required")

	// ErrTokenMismatch is a transient failure of the identity provider's request token
	ErrTokenMismatch = errors.New("auth token mismatch")

	// ErrInvalidCredentials is returned by login on a wrong email/password pair
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrCreditInsufficient is returned when the selected subscription cannot cover anything
	ErrCreditInsufficient = errors.New("subscription credit insufficient")

	// ErrCommitInProgress is returned when the same idempotency key is already being committed
	ErrCommitInProgress = errors.New("commit already in progress for this idempotency key")

	// ErrEmailTaken is returned by the identity provider when the email already has an account
	ErrEmailTaken = errors.New("email already registered")

	// ErrAttemptStateChanged is returned when a conditional attempt status update matched no row
	ErrAttemptStateChanged = errors.New("booking attempt not in expected status")

	// ErrSubscriptionNotFound is returned when the subscription does not exist or is not the caller's
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ValidationError is a local, recoverable input error. The wizard stays on its step.
type ValidationError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewValidationError builds a ValidationError
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IdentityConflictError is returned when the email is already registered
type IdentityConflictError struct {
	Email string
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("email %s is already registered", e.Email)
}

// TripUnavailableError is returned when a leg is missing, expired, cancelled or full
type TripUnavailableError struct {
	TripID uuid.UUID `json:"trip_id"`
	Reason string    `json:"reason"` // not_found, not_bookable, sold_out
}

func (e *TripUnavailableError) Error() string {
	return fmt.Sprintf("trip %s unavailable: %s", e.TripID, e.Reason)
}

// PaymentErrorKind classifies a settlement failure
type PaymentErrorKind string

const (
	PaymentDeclined      PaymentErrorKind = "declined"
	PaymentTimeout       PaymentErrorKind = "timeout"
	PaymentInvalidNumber PaymentErrorKind = "invalid_number"
	PaymentGatewayError  PaymentErrorKind = "gateway_error"
)

// PaymentError is returned when the residual could not be charged. Nothing was taken.
type PaymentError struct {
	Kind PaymentErrorKind
	Err  error
}

func (e *PaymentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment failed: %s", e.Kind)
	}
	return fmt.Sprintf("payment failed: %s: %v", e.Kind, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// ReconciliationError means money was taken but no booking could be persisted.
// It must reach an operator; the caller only sees a contact-support message.
type ReconciliationError struct {
	AttemptID        uuid.UUID
	PaymentReference string
	Err              error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("booking attempt %s charged (ref %s) but not persisted: %v", e.AttemptID, e.PaymentReference, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
