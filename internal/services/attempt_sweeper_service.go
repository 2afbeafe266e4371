package services

import (
	"context"
	"errors"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/metrics"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StaleAttemptStore defines what the sweeper needs from the attempt ledger
type StaleAttemptStore interface {
	GetStaleAttempts(ctx context.Context, olderThan time.Duration, limit int) ([]models.BookingAttempt, error)
	MarkFailed(ctx context.Context, attemptID uuid.UUID, reason string) error
	MarkReconciliationRequired(ctx context.Context, attemptID uuid.UUID, reason string) error
}

// AttemptSweeperService closes booking attempts abandoned mid-commit, e.g. by
// a crashed instance. Attempts that never reached the gateway are failed so
// their key can be retried; attempts that may have taken money are flagged
// for reconciliation.
type AttemptSweeperService struct {
	attempts  StaleAttemptStore
	audits    AuditLogger
	logger    *logrus.Logger
	stopCh    chan struct{}
	interval  time.Duration
	staleFor  time.Duration
	batchSize int
}

// NewAttemptSweeperService creates a new sweeper
func NewAttemptSweeperService(
	attempts StaleAttemptStore,
	audits AuditLogger,
	interval, staleFor time.Duration,
	logger *logrus.Logger,
) *AttemptSweeperService {
	return &AttemptSweeperService{
		attempts:  attempts,
		audits:    audits,
		logger:    logger,
		stopCh:    make(chan struct{}),
		interval:  interval,
		staleFor:  staleFor,
		batchSize: 100,
	}
}

// Start begins the background sweep
func (s *AttemptSweeperService) Start() {
	s.logger.WithFields(logrus.Fields{
		"interval":  s.interval.String(),
		"stale_for": s.staleFor.String(),
	}).Info("Starting booking attempt sweeper")
	go s.run()
}

// Stop stops the background sweep
func (s *AttemptSweeperService) Stop() {
	s.logger.Info("Stopping booking attempt sweeper")
	close(s.stopCh)
}

func (s *AttemptSweeperService) run() {
	s.RunOnce(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			s.logger.Info("Booking attempt sweeper stopped")
			return
		}
	}
}

// SweepResult counts what one sweep did
type SweepResult struct {
	Failed         int
	Reconciliation int
	Errors         int
}

// RunOnce runs a single sweep cycle
func (s *AttemptSweeperService) RunOnce(ctx context.Context) SweepResult {
	var result SweepResult

	stale, err := s.attempts.GetStaleAttempts(ctx, s.staleFor, s.batchSize)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get stale booking attempts")
		result.Errors++
		return result
	}
	if len(stale) == 0 {
		return result
	}

	s.logger.WithField("count", len(stale)).Info("Processing stale booking attempts")

	for i := range stale {
		attempt := &stale[i]
		fields := logrus.Fields{
			"attempt_id":      attempt.ID,
			"idempotency_key": attempt.IdempotencyKey,
			"status":          attempt.Status,
		}

		switch attempt.Status {
		case models.AttemptPending:
			err = s.attempts.MarkFailed(ctx, attempt.ID, "abandoned before payment")
			if err == nil {
				result.Failed++
				metrics.SweptAttempts.WithLabelValues("failed").Inc()
				s.logger.WithFields(fields).Info("Stale booking attempt failed")
			}

		case models.AttemptCharging, models.AttemptCharged:
			err = s.attempts.MarkReconciliationRequired(ctx, attempt.ID, "abandoned after payment started")
			if err == nil {
				result.Reconciliation++
				metrics.SweptAttempts.WithLabelValues("reconciliation_required").Inc()
				metrics.ReconciliationRequired.WithLabelValues("sweeper").Inc()

				ref := ""
				if attempt.PaymentReference != nil {
					ref = *attempt.PaymentReference
				}
				fields["payment_reference"] = ref
				fields["amount_to_pay"] = attempt.AmountToPay
				fields["payload"] = attempt.Payload
				s.logger.WithFields(fields).Error("RECONCILIATION REQUIRED: stale attempt may have been charged")

				code := "stale_attempt"
				entry := models.NewPaymentAudit(models.PaymentEventReconciliationRequired, models.PaymentSourceSweeper).
					SetAttempt(attempt.ID).
					SetPaymentReference(ref).
					SetIdempotencyKey(attempt.IdempotencyKey).
					SetError("attempt stuck in "+string(attempt.Status), &code)
				if auditErr := s.audits.Log(ctx, entry); auditErr != nil {
					s.logger.WithError(auditErr).WithFields(fields).Error("Failed to write payment audit")
				}
			}

		default:
			continue
		}

		if err != nil {
			if errors.Is(err, models.ErrAttemptStateChanged) {
				// Finished by its request in the meantime
				continue
			}
			result.Errors++
			s.logger.WithError(err).WithFields(fields).Error("Failed to close stale booking attempt")
		}
	}

	return result
}
