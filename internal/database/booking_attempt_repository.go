package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// BookingAttemptRepository handles the idempotency / reconciliation ledger
type BookingAttemptRepository struct {
	db *sqlx.DB
}

// NewBookingAttemptRepository creates a new BookingAttemptRepository
func NewBookingAttemptRepository(db *sqlx.DB) *BookingAttemptRepository {
	return &BookingAttemptRepository{db: db}
}

const attemptColumns = `
	id, idempotency_key, status, user_id, payload,
	grand_total, covered_amount, amount_to_pay,
	payment_method, payment_reference, booking_id, error_message, client_device,
	charged_at, confirmed_at, created_at, updated_at`

// ============================================================================
// CREATE / READ
// ============================================================================

// CreateAttempt inserts a new pending attempt. Returns false when the key already exists.
func (r *BookingAttemptRepository) CreateAttempt(ctx context.Context, attempt *models.BookingAttempt) (bool, error) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	attempt.Status = models.AttemptPending
	attempt.CreatedAt = time.Now()
	attempt.UpdatedAt = attempt.CreatedAt

	query := `
		INSERT INTO booking_attempts (
			id, idempotency_key, status, user_id, payload,
			grand_total, covered_amount, amount_to_pay,
			payment_method, client_device, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (idempotency_key) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.IdempotencyKey, attempt.Status, attempt.UserID, attempt.Payload,
		attempt.GrandTotal, attempt.CoveredAmount, attempt.AmountToPay,
		attempt.PaymentMethod, attempt.ClientDevice, attempt.CreatedAt, attempt.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create booking attempt: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// GetAttemptByKey retrieves an attempt by idempotency key. Returns nil, nil when not found.
func (r *BookingAttemptRepository) GetAttemptByKey(ctx context.Context, key string) (*models.BookingAttempt, error) {
	var attempt models.BookingAttempt
	query := `SELECT ` + attemptColumns + ` FROM booking_attempts WHERE idempotency_key = $1`

	err := r.db.GetContext(ctx, &attempt, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking attempt: %w", err)
	}
	return &attempt, nil
}

// GetStaleAttempts returns unfinished attempts not touched since the cutoff
func (r *BookingAttemptRepository) GetStaleAttempts(ctx context.Context, olderThan time.Duration, limit int) ([]models.BookingAttempt, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `
		SELECT ` + attemptColumns + `
		FROM booking_attempts
		WHERE status IN ('pending', 'charging', 'charged')
		  AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`

	attempts := []models.BookingAttempt{}
	if err := r.db.SelectContext(ctx, &attempts, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to get stale booking attempts: %w", err)
	}
	return attempts, nil
}

// GetAttemptsByStatus returns attempts in one status, oldest first
func (r *BookingAttemptRepository) GetAttemptsByStatus(ctx context.Context, status models.AttemptStatus, limit int) ([]models.BookingAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM booking_attempts
		WHERE status = $1
		ORDER BY updated_at ASC
		LIMIT $2`

	attempts := []models.BookingAttempt{}
	if err := r.db.SelectContext(ctx, &attempts, query, status, limit); err != nil {
		return nil, fmt.Errorf("failed to get %s booking attempts: %w", status, err)
	}
	return attempts, nil
}

// ============================================================================
// STATUS UPDATE OPERATIONS
// ============================================================================

// RestartAttempt reuses a key whose previous run took no money
func (r *BookingAttemptRepository) RestartAttempt(ctx context.Context, attempt *models.BookingAttempt) error {
	query := `
		UPDATE booking_attempts
		SET status = 'pending',
		    user_id = $2,
		    payload = $3,
		    grand_total = $4,
		    covered_amount = $5,
		    amount_to_pay = $6,
		    payment_method = $7,
		    payment_reference = NULL,
		    error_message = NULL,
		    client_device = $8,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('payment_failed', 'failed')`

	result, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.UserID, attempt.Payload,
		attempt.GrandTotal, attempt.CoveredAmount, attempt.AmountToPay,
		attempt.PaymentMethod, attempt.ClientDevice,
	)
	if err != nil {
		return fmt.Errorf("failed to restart booking attempt: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	attempt.Status = models.AttemptPending
	attempt.PaymentReference = nil
	attempt.ErrorMessage = nil
	return nil
}

// MarkCharging flags the attempt right before the gateway call
func (r *BookingAttemptRepository) MarkCharging(ctx context.Context, attemptID uuid.UUID) error {
	query := `
		UPDATE booking_attempts
		SET status = 'charging', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	return r.execTransition(ctx, "charging", query, attemptID)
}

// MarkCharged records a successful charge and its reference
func (r *BookingAttemptRepository) MarkCharged(ctx context.Context, attemptID uuid.UUID, paymentRef string) error {
	query := `
		UPDATE booking_attempts
		SET status = 'charged',
		    payment_reference = $2,
		    charged_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'charging'`
	return r.execTransition(ctx, "charged", query, attemptID, paymentRef)
}

// MarkPaymentFailed records a refused charge. The key can be retried.
func (r *BookingAttemptRepository) MarkPaymentFailed(ctx context.Context, attemptID uuid.UUID, reason string) error {
	query := `
		UPDATE booking_attempts
		SET status = 'payment_failed',
		    error_message = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'charging'`
	return r.execTransition(ctx, "payment_failed", query, attemptID, reason)
}

// MarkFailed records an abort that happened before any money was taken
func (r *BookingAttemptRepository) MarkFailed(ctx context.Context, attemptID uuid.UUID, reason string) error {
	query := `
		UPDATE booking_attempts
		SET status = 'failed',
		    error_message = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	return r.execTransition(ctx, "failed", query, attemptID, reason)
}

// MarkReconciliationRequired flags a charged attempt that has no booking
func (r *BookingAttemptRepository) MarkReconciliationRequired(ctx context.Context, attemptID uuid.UUID, reason string) error {
	query := `
		UPDATE booking_attempts
		SET status = 'reconciliation_required',
		    error_message = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('charging', 'charged')`
	return r.execTransition(ctx, "reconciliation_required", query, attemptID, reason)
}

// markAttemptConfirmed links the booking inside the finalize transaction
func markAttemptConfirmed(ctx context.Context, tx sqlx.ExecerContext, attemptID, bookingID uuid.UUID) error {
	query := `
		UPDATE booking_attempts
		SET status = 'confirmed',
		    booking_id = $2,
		    confirmed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'charged')`

	result, err := tx.ExecContext(ctx, query, attemptID, bookingID)
	if err != nil {
		return fmt.Errorf("failed to confirm booking attempt: %w", err)
	}
	return expectOneRow(result)
}

func (r *BookingAttemptRepository) execTransition(ctx context.Context, to string, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark booking attempt %s: %w", to, err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrAttemptStateChanged
	}
	return nil
}
