package database

import (
	"context"
	"fmt"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry. Payment events must never be dropped silently.
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, attempt_id, payment_reference, payment_method,
			event_type, event_source,
			expected_amount, charged_amount, currency, amounts_match,
			request_payload, response_payload,
			error_message, error_code,
			processing_time_ms, idempotency_key, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10,
			$11, $12,
			$13, $14,
			$15, $16, $17
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.AttemptID, audit.PaymentReference, audit.PaymentMethod,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ChargedAmount, audit.Currency, audit.AmountsMatch,
		audit.RequestPayload, audit.ResponsePayload,
		audit.ErrorMessage, audit.ErrorCode,
		audit.ProcessingTimeMs, audit.IdempotencyKey, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":        audit.EventType,
			"attempt_id":        audit.AttemptID,
			"payment_reference": audit.PaymentReference,
		}).Error("CRITICAL: Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"attempt_id": audit.AttemptID,
	}).Debug("Payment audit logged")

	return nil
}

// GetByAttemptID retrieves all audit entries for a booking attempt
func (r *PaymentAuditRepository) GetByAttemptID(ctx context.Context, attemptID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE attempt_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by attempt ID: %w", err)
	}

	return audits, nil
}
