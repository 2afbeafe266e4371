package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING ATTEMPT STATUSES (matches DB ENUM booking_attempt_status)
// ============================================================================

// AttemptStatus represents the progress of one idempotent commit
type AttemptStatus string

const (
	AttemptPending                AttemptStatus = "pending"                 // Validated, nothing charged yet
	AttemptCharging               AttemptStatus = "charging"                // Gateway call in flight
	AttemptCharged                AttemptStatus = "charged"                 // Money taken, booking not yet persisted
	AttemptConfirmed              AttemptStatus = "confirmed"               // Booking and tickets persisted
	AttemptPaymentFailed          AttemptStatus = "payment_failed"          // Gateway refused, nothing taken
	AttemptFailed                 AttemptStatus = "failed"                  // Aborted before any charge
	AttemptReconciliationRequired AttemptStatus = "reconciliation_required" // Charged but not persisted, operator action
)

// ============================================================================
// JSONB PAYLOAD
// ============================================================================

// AttemptPayload is the snapshot of what the caller asked to book.
// It is what an operator reads when reconciling a charge by hand.
type AttemptPayload struct {
	TripID         uuid.UUID      `json:"trip_id"`
	ReturnTripID   *uuid.UUID     `json:"return_trip_id,omitempty"`
	IdentityKind   IdentityKind   `json:"identity_kind"`
	ContactEmail   string         `json:"contact_email"`
	Passengers     []Passenger    `json:"passengers"`
	SubscriptionID *uuid.UUID     `json:"subscription_id,omitempty"`
	PaymentMethod  *PaymentMethod `json:"payment_method,omitempty"`
	PaymentPhone   string         `json:"payment_phone,omitempty"`
	Quote          FareQuote      `json:"quote"`
}

func (p AttemptPayload) Value() (driver.Value, error) {
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (p *AttemptPayload) Scan(value interface{}) error {
	if value == nil {
		*p = AttemptPayload{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed for AttemptPayload")
	}
	return json.Unmarshal(bytes, p)
}

// ============================================================================
// BOOKING ATTEMPT MODEL (booking_attempts table)
// ============================================================================

// BookingAttempt is the durable record of a commit, keyed by idempotency key
type BookingAttempt struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	IdempotencyKey string        `json:"idempotency_key" db:"idempotency_key"`
	Status         AttemptStatus `json:"status" db:"status"`
	UserID         *uuid.UUID    `json:"user_id,omitempty" db:"user_id"`

	Payload AttemptPayload `json:"payload" db:"payload"`

	// Pricing (server-calculated at attempt time)
	GrandTotal    int64 `json:"grand_total" db:"grand_total"`
	CoveredAmount int64 `json:"covered_amount" db:"covered_amount"`
	AmountToPay   int64 `json:"amount_to_pay" db:"amount_to_pay"`

	// Payment tracking
	PaymentMethod    *PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference *string        `json:"payment_reference,omitempty" db:"payment_reference"`

	// Result (filled after confirmation)
	BookingID    *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`

	ClientDevice JSONB `json:"client_device,omitempty" db:"client_device"`

	ChargedAt   *time.Time `json:"charged_at,omitempty" db:"charged_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsInFlight reports whether another request is still working on this attempt
func (a *BookingAttempt) IsInFlight() bool {
	return a.Status == AttemptPending || a.Status == AttemptCharging || a.Status == AttemptCharged
}

// CanRetry reports whether a new commit with the same key may run again.
// Only attempts that never took money qualify.
func (a *BookingAttempt) CanRetry() bool {
	return a.Status == AttemptPaymentFailed || a.Status == AttemptFailed
}

// HasCharge reports whether money was taken for this attempt
func (a *BookingAttempt) HasCharge() bool {
	return a.PaymentReference != nil && a.AmountToPay > 0
}

// AttemptStatusResponse is returned by the attempt lookup endpoint
type AttemptStatusResponse struct {
	IdempotencyKey string        `json:"idempotency_key"`
	Status         AttemptStatus `json:"status"`
	BookingID      *uuid.UUID    `json:"booking_id,omitempty"`
	AmountToPay    int64         `json:"amount_to_pay"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ToStatusResponse converts an attempt to its public view
func (a *BookingAttempt) ToStatusResponse() *AttemptStatusResponse {
	return &AttemptStatusResponse{
		IdempotencyKey: a.IdempotencyKey,
		Status:         a.Status,
		BookingID:      a.BookingID,
		AmountToPay:    a.AmountToPay,
		UpdatedAt:      a.UpdatedAt,
	}
}
