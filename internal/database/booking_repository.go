package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BookingRepository handles booking and ticket database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ============================================================================
// REFERENCE / TICKET CODE GENERATION
// ============================================================================

// GenerateBookingReference generates a unique booking reference
// Format: FB-YYYYMMDD-XXXXXX (6 hex chars)
// Example: FB-20260314-A1B2C3
func (r *BookingRepository) GenerateBookingReference(ctx context.Context) (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomStr, err := randomHex(3)
		if err != nil {
			return "", err
		}
		newRef := fmt.Sprintf("FB-%s-%s", todayStr, randomStr)

		var count int
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE reference = $1`, newRef)
		if err != nil {
			return "", fmt.Errorf("failed to check reference uniqueness: %w", err)
		}
		if count == 0 {
			return newRef, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking reference after 10 attempts")
}

// GenerateTicketCode generates a unique scannable ticket code
// Format: TK-YYYYMMDD-XXXXXXXX (8 hex chars)
func (r *BookingRepository) GenerateTicketCode(ctx context.Context) (string, error) {
	todayStr := time.Now().Format("20060102")

	for attempts := 0; attempts < 10; attempts++ {
		randomStr, err := randomHex(4)
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("TK-%s-%s", todayStr, randomStr)

		var count int
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tickets WHERE code = $1`, code)
		if err != nil {
			return "", fmt.Errorf("failed to check ticket code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique ticket code after 10 attempts")
}

func randomHex(n int) (string, error) {
	randomBytes := make([]byte, n)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(randomBytes)), nil
}

// ============================================================================
// FINALIZE (single transaction)
// ============================================================================

// Finalize writes the confirmed booking. In one transaction it takes the seats
// on every leg, inserts the booking, deducts subscription credit, inserts the
// tickets and confirms the attempt. Any failure leaves nothing behind.
func (r *BookingRepository) Finalize(ctx context.Context, f *models.Finalization) error {
	if f == nil || f.Booking == nil {
		return fmt.Errorf("finalization requires a booking")
	}
	booking := f.Booking

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Definite capacity decrement per leg
	for _, claim := range f.Seats {
		if err := decrementCapacity(ctx, tx, claim.TripID, claim.Seats); err != nil {
			return err
		}
	}

	// 2. Booking row
	now := time.Now()
	booking.Status = models.BookingConfirmed
	booking.ConfirmedAt = &now

	bookingQuery := `
		INSERT INTO bookings (
			id, reference, trip_id, return_trip_id, user_id, contact_email, passengers,
			total_amount, covered_amount, amount_charged,
			subscription_id, payment_method, payment_reference,
			status, idempotency_key, attempt_id, confirmed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		) RETURNING created_at`

	err = tx.QueryRowxContext(ctx, bookingQuery,
		booking.ID, booking.Reference, booking.TripID, booking.ReturnTripID, booking.UserID,
		booking.ContactEmail, booking.Passengers,
		booking.TotalAmount, booking.CoveredAmount, booking.AmountCharged,
		booking.SubscriptionID, booking.PaymentMethod, booking.PaymentReference,
		booking.Status, booking.IdempotencyKey, f.AttemptID, booking.ConfirmedAt,
	).Scan(&booking.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("booking already exists for this attempt: %w", err)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	// 3. Subscription credit, exactly once per booking
	if f.Deduction != nil {
		if err := deductCredit(ctx, tx, booking.ID, *f.Deduction); err != nil {
			return err
		}
	}

	// 4. Tickets, one per passenger per leg
	ticketQuery := `
		INSERT INTO tickets (
			id, booking_id, trip_id, leg, passenger_index, passenger_name,
			passenger_type, unit_price, code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	for i := range booking.Tickets {
		t := &booking.Tickets[i]
		t.BookingID = booking.ID
		err = tx.QueryRowxContext(ctx, ticketQuery,
			t.ID, t.BookingID, t.TripID, t.Leg, t.PassengerIndex, t.PassengerName,
			t.PassengerType, t.UnitPrice, t.Code,
		).Scan(&t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create ticket %s: %w", t.Code, err)
		}
	}

	// 5. Attempt confirmed
	if err := markAttemptConfirmed(ctx, tx, f.AttemptID, booking.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

const bookingColumns = `
	id, reference, trip_id, return_trip_id, user_id, contact_email, passengers,
	total_amount, covered_amount, amount_charged,
	subscription_id, payment_method, payment_reference,
	status, idempotency_key, attempt_id, created_at, confirmed_at`

// GetBookingByID retrieves a booking with its tickets. Returns nil, nil when not found.
func (r *BookingRepository) GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := r.db.GetContext(ctx, &booking, query, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	tickets, err := r.GetTicketsByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Tickets = tickets
	return &booking, nil
}

// GetTicketsByBookingID returns the tickets of a booking, outward leg first
func (r *BookingRepository) GetTicketsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Ticket, error) {
	query := `
		SELECT id, booking_id, trip_id, leg, passenger_index, passenger_name,
		       passenger_type, unit_price, code, created_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY leg ASC, passenger_index ASC`

	tickets := []models.Ticket{}
	if err := r.db.SelectContext(ctx, &tickets, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	return tickets, nil
}
