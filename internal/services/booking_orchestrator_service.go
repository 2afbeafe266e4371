package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/metrics"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TripStore defines the trip reads used by the orchestrator
type TripStore interface {
	GetTripByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error)
}

// BookingStore defines booking persistence. Finalize must be all-or-nothing.
type BookingStore interface {
	GenerateBookingReference(ctx context.Context) (string, error)
	GenerateTicketCode(ctx context.Context) (string, error)
	Finalize(ctx context.Context, f *models.Finalization) error
	GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

// AttemptStore defines the booking attempt ledger
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt *models.BookingAttempt) (bool, error)
	GetAttemptByKey(ctx context.Context, key string) (*models.BookingAttempt, error)
	RestartAttempt(ctx context.Context, attempt *models.BookingAttempt) error
	MarkCharging(ctx context.Context, attemptID uuid.UUID) error
	MarkCharged(ctx context.Context, attemptID uuid.UUID, paymentRef string) error
	MarkPaymentFailed(ctx context.Context, attemptID uuid.UUID, reason string) error
	MarkFailed(ctx context.Context, attemptID uuid.UUID, reason string) error
	MarkReconciliationRequired(ctx context.Context, attemptID uuid.UUID, reason string) error
}

// AuditLogger records payment events
type AuditLogger interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// IdempotencyLock guards an idempotency key while a commit runs
type IdempotencyLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher announces confirmed bookings to downstream services
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, b *models.Booking) error
}

// BookingOrchestratorConfig holds configuration for the orchestrator
type BookingOrchestratorConfig struct {
	LockTTL       time.Duration // In-flight idempotency lock lifetime (default 2 min)
	MaxPassengers int           // Per booking (default 20)
}

// DefaultOrchestratorConfig returns default configuration
func DefaultOrchestratorConfig() BookingOrchestratorConfig {
	return BookingOrchestratorConfig{
		LockTTL:       2 * time.Minute,
		MaxPassengers: 20,
	}
}

// BookingOrchestratorService runs the single idempotent commit:
// validate → re-check trips → identity → subscription → charge → finalize
type BookingOrchestratorService struct {
	trips      TripStore
	bookings   BookingStore
	attempts   AttemptStore
	audits     AuditLogger
	lock       IdempotencyLock
	publisher  EventPublisher
	resolver   *AccountResolver
	ledger     *SubscriptionLedger
	fares      *FareCalculator
	settlement *PaymentSettlement
	phones     *validator.PhoneValidator
	config     BookingOrchestratorConfig
	logger     *logrus.Logger
	now        func() time.Time
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	trips TripStore,
	bookings BookingStore,
	attempts AttemptStore,
	audits AuditLogger,
	lock IdempotencyLock,
	publisher EventPublisher,
	resolver *AccountResolver,
	ledger *SubscriptionLedger,
	fares *FareCalculator,
	settlement *PaymentSettlement,
	config BookingOrchestratorConfig,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		trips:      trips,
		bookings:   bookings,
		attempts:   attempts,
		audits:     audits,
		lock:       lock,
		publisher:  publisher,
		resolver:   resolver,
		ledger:     ledger,
		fares:      fares,
		settlement: settlement,
		phones:     validator.NewPhoneValidator(),
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// ============================================================================
// COMMIT
// ============================================================================

// Commit turns a completed wizard into a confirmed booking. Calling it again
// with the same idempotency key never books or charges twice.
func (s *BookingOrchestratorService) Commit(ctx context.Context, req *models.CommitRequest) (*models.CommitResponse, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.IdempotencyKey == "" {
		return nil, models.NewValidationError("idempotency_key", "idempotency key is required")
	}

	// 1. Only one request works on a key at a time
	acquired, err := s.lock.Acquire(ctx, req.IdempotencyKey, s.config.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		metrics.Commits.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, models.ErrCommitInProgress
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), req.IdempotencyKey); err != nil {
			s.logger.WithError(err).WithField("idempotency_key", req.IdempotencyKey).Warn("Failed to release idempotency lock")
		}
	}()

	// 2. Replay an earlier attempt with this key
	existing, err := s.attempts.GetAttemptByKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil && !existing.CanRetry() {
		return s.replay(ctx, existing)
	}

	resp, err := s.commit(ctx, req, existing)
	s.countOutcome(err)
	return resp, err
}

func (s *BookingOrchestratorService) replay(ctx context.Context, attempt *models.BookingAttempt) (*models.CommitResponse, error) {
	switch attempt.Status {
	case models.AttemptConfirmed:
		if attempt.BookingID == nil {
			return nil, fmt.Errorf("confirmed attempt %s has no booking", attempt.ID)
		}
		booking, err := s.bookings.GetBookingByID(ctx, *attempt.BookingID)
		if err != nil {
			return nil, err
		}
		if booking == nil {
			return nil, fmt.Errorf("booking %s of attempt %s not found", *attempt.BookingID, attempt.ID)
		}
		metrics.Commits.WithLabelValues(metrics.OutcomeReplayed).Inc()
		resp := buildCommitResponse(booking)
		resp.Replayed = true
		return resp, nil

	case models.AttemptReconciliationRequired:
		ref := ""
		if attempt.PaymentReference != nil {
			ref = *attempt.PaymentReference
		}
		return nil, &models.ReconciliationError{
			AttemptID:        attempt.ID,
			PaymentReference: ref,
			Err:              errors.New("attempt awaiting manual reconciliation"),
		}
	}

	// pending, charging or charged: another request crashed or is still running
	metrics.Commits.WithLabelValues(metrics.OutcomeRejected).Inc()
	return nil, models.ErrCommitInProgress
}

func (s *BookingOrchestratorService) commit(ctx context.Context, req *models.CommitRequest, previous *models.BookingAttempt) (*models.CommitResponse, error) {
	// 3. Input
	if req.TripID == uuid.Nil {
		return nil, models.NewValidationError("trip_id", "trip is required")
	}
	if req.ReturnTripID != nil && *req.ReturnTripID == req.TripID {
		return nil, models.NewValidationError("return_trip_id", "return trip must differ from the outward trip")
	}
	if err := validatePassengers(req.Passengers, s.config.MaxPassengers); err != nil {
		return nil, err
	}

	// 4. Soft availability check. The definite decrement happens at finalize.
	outward, err := s.checkTrip(ctx, req.TripID, len(req.Passengers))
	if err != nil {
		return nil, err
	}
	if req.ReturnTripID != nil {
		inbound, err := s.checkTrip(ctx, *req.ReturnTripID, len(req.Passengers))
		if err != nil {
			return nil, err
		}
		if !inbound.DepartureTime.After(outward.DepartureTime) {
			return nil, models.NewValidationError("return_trip_id", "return trip must depart after the outward trip")
		}
	}

	// 5. Subscription and totals. Only a token holder owns subscriptions, so
	// nothing here waits on a registration.
	quote := s.fares.Quote(req.Passengers, req.ReturnTripID != nil)
	var deduction *models.CreditDeduction
	if req.SubscriptionID != nil {
		sub, err := s.ledger.Select(ctx, req.Identity, *req.SubscriptionID)
		if err != nil {
			return nil, err
		}
		s.ledger.ApplyToQuote(&quote, sub, req.Passengers)
		deduction = s.ledger.DeductionFor(sub, quote.CoveredAmount)
	}
	if err := validatePayment(s.phones, req.PaymentMethod, req.PaymentPhone, quote.AmountToPay); err != nil {
		return nil, err
	}

	// 6. Identity. Registration is the last step before the attempt is stored.
	identity, err := s.confirmIdentity(ctx, req.Identity, previous)
	if err != nil {
		return nil, err
	}

	// 7. Persist the attempt before any money moves
	attempt := &models.BookingAttempt{
		IdempotencyKey: req.IdempotencyKey,
		UserID:         identity.UserID,
		Payload: models.AttemptPayload{
			TripID:         req.TripID,
			ReturnTripID:   req.ReturnTripID,
			IdentityKind:   identity.Kind,
			ContactEmail:   identity.ContactEmail(),
			Passengers:     req.Passengers,
			SubscriptionID: req.SubscriptionID,
			PaymentMethod:  req.PaymentMethod,
			PaymentPhone:   req.PaymentPhone,
			Quote:          quote,
		},
		GrandTotal:    quote.GrandTotal,
		CoveredAmount: quote.CoveredAmount,
		AmountToPay:   quote.AmountToPay,
		ClientDevice:  req.ClientDevice,
	}
	if quote.AmountToPay > 0 {
		attempt.PaymentMethod = req.PaymentMethod
	}
	if err := s.persistAttempt(ctx, attempt, previous); err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"attempt_id":      attempt.ID,
		"idempotency_key": attempt.IdempotencyKey,
		"trip_id":         req.TripID,
		"amount_to_pay":   quote.AmountToPay,
	})
	logger.Info("Booking attempt started")

	// 8. Charge the residual. No lock or transaction is held here.
	paymentRef := ""
	if quote.AmountToPay > 0 {
		paymentRef, err = s.charge(ctx, attempt, *req.PaymentMethod, req.PaymentPhone)
		if err != nil {
			return nil, err
		}
	} else {
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventCoveredByCredit, models.PaymentSourceBackend).
			SetAttempt(attempt.ID).
			SetIdempotencyKey(attempt.IdempotencyKey))
	}

	// 9. Finalize in one transaction
	booking, err := s.buildBooking(ctx, attempt, identity, req, quote, deduction, paymentRef)
	if err == nil {
		err = s.bookings.Finalize(ctx, &models.Finalization{
			AttemptID: attempt.ID,
			Booking:   booking,
			Seats:     seatClaims(req),
			Deduction: deduction,
		})
	}
	if err != nil {
		if paymentRef != "" {
			// 10. Money taken, nothing persisted
			return nil, s.reconcile(ctx, attempt, paymentRef, err)
		}
		if markErr := s.attempts.MarkFailed(context.WithoutCancel(ctx), attempt.ID, err.Error()); markErr != nil {
			logger.WithError(markErr).Error("Failed to mark booking attempt failed")
		}
		logger.WithError(err).Warn("Booking finalize failed before any charge")
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.Reference,
		"tickets":    len(booking.Tickets),
	}).Info("Booking confirmed")

	s.audit(ctx, models.NewPaymentAudit(models.PaymentEventBookingConfirmed, models.PaymentSourceBackend).
		SetAttempt(attempt.ID).
		SetPaymentReference(paymentRef).
		SetIdempotencyKey(attempt.IdempotencyKey))

	// 11. Downstream (tickets, receipts, email) never rolls back the booking
	if err := s.publisher.PublishBookingConfirmed(context.WithoutCancel(ctx), booking); err != nil {
		logger.WithError(err).Warn("Failed to publish booking confirmed event")
	}

	return buildCommitResponse(booking), nil
}

// checkTrip fails with TripUnavailableError if the leg cannot take n seats now
func (s *BookingOrchestratorService) checkTrip(ctx context.Context, tripID uuid.UUID, n int) (*models.Trip, error) {
	trip, err := s.trips.GetTripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	switch {
	case trip == nil:
		return nil, &models.TripUnavailableError{TripID: tripID, Reason: "not_found"}
	case !trip.IsBookable(s.now()):
		return nil, &models.TripUnavailableError{TripID: tripID, Reason: "not_bookable"}
	case !trip.HasCapacityFor(n):
		return nil, &models.TripUnavailableError{TripID: tripID, Reason: "sold_out"}
	}
	return trip, nil
}

// confirmIdentity settles the identity for the commit. A pending registration
// that reached commit is registered now, unless an earlier run of the same key
// already registered it.
func (s *BookingOrchestratorService) confirmIdentity(ctx context.Context, identity models.Identity, previous *models.BookingAttempt) (models.Identity, error) {
	switch identity.Kind {
	case models.IdentityAuthenticated:
		if !identity.IsAuthenticated() {
			return models.Identity{}, models.ErrAuthRequired
		}
		return identity, nil

	case models.IdentityPendingRegistration:
		if registered, ok := registeredBy(previous, identity.Email); ok {
			s.logger.WithFields(logrus.Fields{
				"attempt_id":      previous.ID,
				"idempotency_key": previous.IdempotencyKey,
				"user_id":         *registered.UserID,
			}).Info("Reusing account registered by an earlier run")
			return registered, nil
		}
		input := &models.IdentityInput{
			Mode:     models.ModeCreateAccount,
			Name:     identity.Name,
			Email:    identity.Email,
			Phone:    identity.Phone,
			Password: identity.Password,
		}
		resolved, _, err := s.resolver.ResolveIdentity(ctx, nil, input)
		return resolved, err

	case models.IdentityGuest:
		if _, _, err := s.resolver.ResolveIdentity(ctx, nil, &models.IdentityInput{Mode: models.ModeGuest, Email: identity.Email}); err != nil {
			return models.Identity{}, err
		}
		return models.Guest(strings.TrimSpace(identity.Email), strings.TrimSpace(identity.Phone)), nil
	}
	return models.Identity{}, models.NewValidationError("identity", "identity is required")
}

// registeredBy returns the account a retried attempt created for this email
func registeredBy(previous *models.BookingAttempt, email string) (models.Identity, bool) {
	if previous == nil || previous.UserID == nil || previous.Payload.IdentityKind != models.IdentityAuthenticated {
		return models.Identity{}, false
	}
	if !strings.EqualFold(previous.Payload.ContactEmail, strings.TrimSpace(email)) {
		return models.Identity{}, false
	}
	return models.Authenticated(*previous.UserID, previous.Payload.ContactEmail), true
}

func (s *BookingOrchestratorService) persistAttempt(ctx context.Context, attempt *models.BookingAttempt, previous *models.BookingAttempt) error {
	if previous != nil {
		attempt.ID = previous.ID
		attempt.CreatedAt = previous.CreatedAt
		if err := s.attempts.RestartAttempt(ctx, attempt); err != nil {
			if errors.Is(err, models.ErrAttemptStateChanged) {
				return models.ErrCommitInProgress
			}
			return err
		}
		return nil
	}

	created, err := s.attempts.CreateAttempt(ctx, attempt)
	if err != nil {
		return err
	}
	if !created {
		// Another instance inserted the key after our lookup
		return models.ErrCommitInProgress
	}
	return nil
}

// charge moves the attempt through charging → charged. Returns the payment reference.
func (s *BookingOrchestratorService) charge(ctx context.Context, attempt *models.BookingAttempt, method models.PaymentMethod, phone string) (string, error) {
	if err := s.attempts.MarkCharging(ctx, attempt.ID); err != nil {
		if errors.Is(err, models.ErrAttemptStateChanged) {
			return "", models.ErrCommitInProgress
		}
		return "", err
	}

	start := time.Now()
	s.audit(ctx, models.NewPaymentAudit(models.PaymentEventInitiated, models.PaymentSourceBackend).
		SetAttempt(attempt.ID).
		SetPaymentMethod(method).
		SetIdempotencyKey(attempt.IdempotencyKey).
		SetRequestPayload(map[string]interface{}{
			"amount":   attempt.AmountToPay,
			"currency": s.settlement.Currency(),
		}))

	result, err := s.settlement.Charge(ctx, method, phone, attempt.AmountToPay, attempt.ID.String())
	if err != nil {
		reason := err.Error()
		if markErr := s.attempts.MarkPaymentFailed(context.WithoutCancel(ctx), attempt.ID, reason); markErr != nil {
			s.logger.WithError(markErr).WithField("attempt_id", attempt.ID).Error("Failed to mark booking attempt payment_failed")
		}
		failure := models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceGateway).
			SetAttempt(attempt.ID).
			SetPaymentMethod(method).
			SetIdempotencyKey(attempt.IdempotencyKey).
			SetProcessingTime(start)
		var payErr *models.PaymentError
		if errors.As(err, &payErr) {
			code := string(payErr.Kind)
			failure.SetError(reason, &code)
		} else {
			failure.SetError(reason, nil)
		}
		s.audit(ctx, failure)
		return "", err
	}

	success := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceGateway).
		SetAttempt(attempt.ID).
		SetPaymentMethod(method).
		SetPaymentReference(result.Reference).
		SetIdempotencyKey(attempt.IdempotencyKey).
		SetProcessingTime(start)
	if !success.SetAmounts(attempt.AmountToPay, result.Amount, s.settlement.Currency()) {
		s.logger.WithFields(logrus.Fields{
			"attempt_id": attempt.ID,
			"expected":   attempt.AmountToPay,
			"charged":    result.Amount,
		}).Warn("Charged amount differs from amount to pay")
	}
	s.audit(ctx, success)

	if err := s.attempts.MarkCharged(context.WithoutCancel(ctx), attempt.ID, result.Reference); err != nil {
		return "", s.reconcile(ctx, attempt, result.Reference, err)
	}
	return result.Reference, nil
}

// buildBooking assembles the booking and one ticket per passenger per leg
func (s *BookingOrchestratorService) buildBooking(
	ctx context.Context,
	attempt *models.BookingAttempt,
	identity models.Identity,
	req *models.CommitRequest,
	quote models.FareQuote,
	deduction *models.CreditDeduction,
	paymentRef string,
) (*models.Booking, error) {
	reference, err := s.bookings.GenerateBookingReference(ctx)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:             uuid.New(),
		Reference:      reference,
		TripID:         req.TripID,
		ReturnTripID:   req.ReturnTripID,
		UserID:         identity.UserID,
		ContactEmail:   identity.ContactEmail(),
		Passengers:     models.Passengers(req.Passengers),
		TotalAmount:    quote.GrandTotal,
		CoveredAmount:  quote.CoveredAmount,
		AmountCharged:  quote.AmountToPay,
		Status:         models.BookingPending,
		IdempotencyKey: req.IdempotencyKey,
		AttemptID:      attempt.ID,
	}
	if deduction != nil {
		booking.SubscriptionID = &deduction.SubscriptionID
	}
	if paymentRef != "" {
		booking.PaymentMethod = req.PaymentMethod
		booking.PaymentReference = &paymentRef
	}

	legs := []ticketLeg{{models.LegOutward, req.TripID}}
	if req.ReturnTripID != nil {
		legs = append(legs, ticketLeg{models.LegReturn, *req.ReturnTripID})
	}

	booking.Tickets = make([]models.Ticket, 0, len(legs)*len(quote.Lines))
	for _, l := range legs {
		for _, line := range quote.Lines {
			code, err := s.bookings.GenerateTicketCode(ctx)
			if err != nil {
				return nil, err
			}
			booking.Tickets = append(booking.Tickets, models.Ticket{
				ID:             uuid.New(),
				BookingID:      booking.ID,
				TripID:         l.tripID,
				Leg:            l.leg,
				PassengerIndex: line.PassengerIndex,
				PassengerName:  strings.TrimSpace(line.PassengerName),
				PassengerType:  line.Type,
				UnitPrice:      line.UnitPrice,
				Code:           code,
			})
		}
	}
	return booking, nil
}

type ticketLeg struct {
	leg    models.TicketLeg
	tripID uuid.UUID
}

func seatClaims(req *models.CommitRequest) []models.SeatClaim {
	claims := []models.SeatClaim{{TripID: req.TripID, Seats: len(req.Passengers)}}
	if req.ReturnTripID != nil {
		claims = append(claims, models.SeatClaim{TripID: *req.ReturnTripID, Seats: len(req.Passengers)})
	}
	return claims
}

// reconcile records a charge that has no booking. This is the one failure an
// operator must see.
func (s *BookingOrchestratorService) reconcile(ctx context.Context, attempt *models.BookingAttempt, paymentRef string, cause error) error {
	ctx = context.WithoutCancel(ctx)

	if err := s.attempts.MarkReconciliationRequired(ctx, attempt.ID, cause.Error()); err != nil {
		s.logger.WithError(err).WithField("attempt_id", attempt.ID).Error("Failed to flag booking attempt for reconciliation")
	}
	metrics.ReconciliationRequired.WithLabelValues("commit").Inc()

	s.logger.WithFields(logrus.Fields{
		"attempt_id":        attempt.ID,
		"idempotency_key":   attempt.IdempotencyKey,
		"payment_reference": paymentRef,
		"amount_charged":    attempt.AmountToPay,
		"payload":           attempt.Payload,
		"error":             cause.Error(),
	}).Error("RECONCILIATION REQUIRED: payment taken but booking not persisted")

	code := "finalize_failed"
	s.audit(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationRequired, models.PaymentSourceBackend).
		SetAttempt(attempt.ID).
		SetPaymentReference(paymentRef).
		SetIdempotencyKey(attempt.IdempotencyKey).
		SetError(cause.Error(), &code))

	return &models.ReconciliationError{AttemptID: attempt.ID, PaymentReference: paymentRef, Err: cause}
}

func (s *BookingOrchestratorService) audit(ctx context.Context, entry *models.PaymentAudit) {
	if err := s.audits.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.WithError(err).WithField("event_type", entry.EventType).Error("Failed to write payment audit")
	}
}

func (s *BookingOrchestratorService) countOutcome(err error) {
	var payErr *models.PaymentError
	var recErr *models.ReconciliationError
	switch {
	case err == nil:
		metrics.Commits.WithLabelValues(metrics.OutcomeConfirmed).Inc()
	case errors.As(err, &recErr):
		metrics.Commits.WithLabelValues(metrics.OutcomeReconciliation).Inc()
	case errors.As(err, &payErr):
		metrics.Commits.WithLabelValues(metrics.OutcomePaymentFailed).Inc()
	default:
		metrics.Commits.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
}

// ============================================================================
// LOOKUPS
// ============================================================================

// GetAttemptStatus returns the public status of an attempt. Returns nil, nil when unknown.
func (s *BookingOrchestratorService) GetAttemptStatus(ctx context.Context, key string) (*models.AttemptStatusResponse, error) {
	attempt, err := s.attempts.GetAttemptByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, nil
	}
	return attempt.ToStatusResponse(), nil
}

func buildCommitResponse(b *models.Booking) *models.CommitResponse {
	return &models.CommitResponse{
		BookingID:     b.ID,
		Reference:     b.Reference,
		Status:        b.Status,
		TotalAmount:   b.TotalAmount,
		AmountCharged: b.AmountCharged,
		Tickets:       b.Tickets,
	}
}
