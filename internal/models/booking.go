package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// PAYMENT METHODS
// ============================================================================

// PaymentMethod represents how the residual amount is settled
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentWave        PaymentMethod = "wave"
	PaymentOrangeMoney PaymentMethod = "orange_money"
	PaymentFreeMoney   PaymentMethod = "free_money"
)

// IsMobileMoney reports whether the method is charged against a phone number
func (m PaymentMethod) IsMobileMoney() bool {
	switch m {
	case PaymentWave, PaymentOrangeMoney, PaymentFreeMoney:
		return true
	}
	return false
}

// IsValid reports whether the method is one we can settle
func (m PaymentMethod) IsValid() bool {
	return m == PaymentCash || m.IsMobileMoney()
}

// ============================================================================
// BOOKING
// ============================================================================

// BookingStatus represents the lifecycle of a booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
)

// Passengers is the JSONB list of passengers stored on a booking
type Passengers []Passenger

func (p Passengers) Value() (driver.Value, error) {
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (p *Passengers) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed for Passengers")
	}
	return json.Unmarshal(bytes, p)
}

// Booking is the durable output of a successful commit. Immutable once confirmed.
type Booking struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	Reference        string         `json:"reference" db:"reference"`
	TripID           uuid.UUID      `json:"trip_id" db:"trip_id"`
	ReturnTripID     *uuid.UUID     `json:"return_trip_id,omitempty" db:"return_trip_id"`
	UserID           *uuid.UUID     `json:"user_id,omitempty" db:"user_id"`
	ContactEmail     string         `json:"contact_email" db:"contact_email"`
	Passengers       Passengers     `json:"passengers" db:"passengers"`
	TotalAmount      int64          `json:"total_amount" db:"total_amount"`
	CoveredAmount    int64          `json:"covered_amount" db:"covered_amount"`
	AmountCharged    int64          `json:"amount_charged" db:"amount_charged"`
	SubscriptionID   *uuid.UUID     `json:"subscription_id,omitempty" db:"subscription_id"`
	PaymentMethod    *PaymentMethod `json:"payment_method,omitempty" db:"payment_method"`
	PaymentReference *string        `json:"payment_reference,omitempty" db:"payment_reference"`
	Status           BookingStatus  `json:"status" db:"status"`
	IdempotencyKey   string         `json:"-" db:"idempotency_key"`
	AttemptID        uuid.UUID      `json:"attempt_id" db:"attempt_id"`
	Tickets          []Ticket       `json:"tickets,omitempty" db:"-"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	ConfirmedAt      *time.Time     `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// IsRoundTrip reports whether the booking has a return leg
func (b *Booking) IsRoundTrip() bool {
	return b.ReturnTripID != nil
}

// ============================================================================
// TICKETS
// ============================================================================

// TicketLeg identifies which direction a ticket is valid for
type TicketLeg string

const (
	LegOutward TicketLeg = "outward"
	LegReturn  TicketLeg = "return"
)

// Ticket is one passenger on one leg. Only created with its confirmed booking.
type Ticket struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	BookingID      uuid.UUID     `json:"booking_id" db:"booking_id"`
	TripID         uuid.UUID     `json:"trip_id" db:"trip_id"`
	Leg            TicketLeg     `json:"leg" db:"leg"`
	PassengerIndex int           `json:"passenger_index" db:"passenger_index"`
	PassengerName  string        `json:"passenger_name" db:"passenger_name"`
	PassengerType  PassengerType `json:"passenger_type" db:"passenger_type"`
	UnitPrice      int64         `json:"unit_price" db:"unit_price"`
	Code           string        `json:"code" db:"code"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// ============================================================================
// COMMIT REQUEST / RESPONSE
// ============================================================================

// CommitRequest is the payload of the single idempotent commit endpoint
type CommitRequest struct {
	IdempotencyKey string         `json:"idempotency_key"`
	TripID         uuid.UUID      `json:"trip_id"`
	ReturnTripID   *uuid.UUID     `json:"return_trip_id,omitempty"`
	Identity       Identity       `json:"identity"`
	Passengers     []Passenger    `json:"passengers"`
	SubscriptionID *uuid.UUID     `json:"subscription_id,omitempty"`
	PaymentMethod  *PaymentMethod `json:"payment_method,omitempty"`
	PaymentPhone   string         `json:"payment_phone,omitempty"`
	ClientDevice   JSONB          `json:"-"`
}

// LegCount returns 2 for a round trip, 1 otherwise
func (r *CommitRequest) LegCount() int {
	if r.ReturnTripID != nil {
		return 2
	}
	return 1
}

// CommitResponse is what the commit endpoint returns on success
type CommitResponse struct {
	BookingID     uuid.UUID     `json:"booking_id"`
	Reference     string        `json:"reference"`
	Status        BookingStatus `json:"status"`
	TotalAmount   int64         `json:"total_amount"`
	AmountCharged int64         `json:"amount_charged"`
	Tickets       []Ticket      `json:"tickets,omitempty"`
	Replayed      bool          `json:"replayed"`
}

// ============================================================================
// FINALIZE INPUT
// ============================================================================

// SeatClaim is a definite capacity decrement on one leg
type SeatClaim struct {
	TripID uuid.UUID
	Seats  int
}

// Finalization is everything the commit writes in its single transaction
type Finalization struct {
	AttemptID uuid.UUID
	Booking   *Booking // Tickets included
	Seats     []SeatClaim
	Deduction *CreditDeduction
}
