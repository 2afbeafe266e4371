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

// SubscriptionRepository handles subscription (badge) database operations
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, user_id, plan_name, credit_type, voyage_credits_remaining,
	legacy_credit_fcfa, status, valid_until, created_at, updated_at`

// GetActiveSubscriptions returns the active, unexpired subscriptions of a user
func (r *SubscriptionRepository) GetActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		  AND status = 'active'
		  AND (valid_until IS NULL OR valid_until > NOW())
		ORDER BY created_at ASC`

	subs := []models.Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get active subscriptions: %w", err)
	}
	return subs, nil
}

// GetSubscriptionByID retrieves a subscription by ID. Returns nil, nil when not found.
func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	err := r.db.GetContext(ctx, &sub, query, subscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// GetDeductionByBookingID returns the deduction recorded for a booking, if any
func (r *SubscriptionRepository) GetDeductionByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.SubscriptionDeduction, error) {
	var d models.SubscriptionDeduction
	query := `
		SELECT id, booking_id, subscription_id, credit_type, voyages, amount_fcfa, created_at
		FROM subscription_deductions
		WHERE booking_id = $1`

	err := r.db.GetContext(ctx, &d, query, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription deduction: %w", err)
	}
	return &d, nil
}

// deductCredit applies a deduction inside the finalize transaction.
// The row update serializes concurrent bookings on the same subscription;
// the deduction row is UNIQUE(booking_id) so a booking is never charged twice.
func deductCredit(ctx context.Context, tx sqlx.ExecerContext, bookingID uuid.UUID, d models.CreditDeduction) error {
	var (
		result sql.Result
		err    error
	)

	switch d.CreditType {
	case models.CreditCounted:
		result, err = tx.ExecContext(ctx, `
			UPDATE subscriptions
			SET voyage_credits_remaining = voyage_credits_remaining - $2,
			    updated_at = NOW()
			WHERE id = $1
			  AND status = 'active'
			  AND (valid_until IS NULL OR valid_until > NOW())
			  AND voyage_credits_remaining >= $2`,
			d.SubscriptionID, d.Voyages)
	case models.CreditLegacyMonetary:
		result, err = tx.ExecContext(ctx, `
			UPDATE subscriptions
			SET legacy_credit_fcfa = legacy_credit_fcfa - $2,
			    updated_at = NOW()
			WHERE id = $1
			  AND status = 'active'
			  AND (valid_until IS NULL OR valid_until > NOW())
			  AND legacy_credit_fcfa >= $2`,
			d.SubscriptionID, d.AmountFCFA)
	case models.CreditUnlimited:
		// Nothing to decrement, but the plan must still be redeemable
		result, err = tx.ExecContext(ctx, `
			UPDATE subscriptions
			SET updated_at = NOW()
			WHERE id = $1
			  AND status = 'active'
			  AND (valid_until IS NULL OR valid_until > NOW())`,
			d.SubscriptionID)
	default:
		return fmt.Errorf("unknown credit type: %s", d.CreditType)
	}
	if err != nil {
		return fmt.Errorf("failed to deduct subscription credit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrCreditInsufficient
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscription_deductions (
			id, booking_id, subscription_id, credit_type, voyages, amount_fcfa, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), bookingID, d.SubscriptionID, d.CreditType, d.Voyages, d.AmountFCFA, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record subscription deduction: %w", err)
	}
	return nil
}
