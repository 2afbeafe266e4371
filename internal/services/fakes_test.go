package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the postgres repositories. Finalize
// checks every condition before writing anything, like the SQL transaction.
type memStore struct {
	mu sync.Mutex

	trips         map[uuid.UUID]*models.Trip
	subscriptions map[uuid.UUID]*models.Subscription
	users         map[string]*models.User
	bookings      map[uuid.UUID]*models.Booking
	attempts      map[string]*models.BookingAttempt
	deductions    map[uuid.UUID]models.CreditDeduction // by booking id
	audits        []*models.PaymentAudit

	seq          int
	finalizeErr  error
	markedErrors map[string]error // attempt transition name → forced error
}

func newMemStore() *memStore {
	return &memStore{
		trips:         make(map[uuid.UUID]*models.Trip),
		subscriptions: make(map[uuid.UUID]*models.Subscription),
		users:         make(map[string]*models.User),
		bookings:      make(map[uuid.UUID]*models.Booking),
		attempts:      make(map[string]*models.BookingAttempt),
		deductions:    make(map[uuid.UUID]models.CreditDeduction),
		markedErrors:  make(map[string]error),
	}
}

func (s *memStore) addTrip(capacity int, departsIn time.Duration) *models.Trip {
	t := &models.Trip{
		ID:                uuid.New(),
		DeparturePort:     "Dakar",
		ArrivalPort:       "Gorée",
		DepartureTime:     time.Now().Add(departsIn),
		ShipName:          "Coumba Castel",
		BaseFare:          1500,
		RemainingCapacity: capacity,
		Status:            models.TripStatusScheduled,
	}
	s.mu.Lock()
	s.trips[t.ID] = t
	s.mu.Unlock()
	return t
}

func (s *memStore) addSubscription(userID uuid.UUID, creditType models.CreditType, credits int, legacy int64) *models.Subscription {
	sub := &models.Subscription{
		ID:                     uuid.New(),
		UserID:                 userID,
		PlanName:               string(creditType),
		CreditType:             creditType,
		VoyageCreditsRemaining: credits,
		LegacyCreditFCFA:       legacy,
		Status:                 models.SubscriptionActive,
	}
	s.mu.Lock()
	s.subscriptions[sub.ID] = sub
	s.mu.Unlock()
	return sub
}

func (s *memStore) remaining(tripID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trips[tripID].RemainingCapacity
}

func (s *memStore) subscription(id uuid.UUID) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.subscriptions[id]
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) deductionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deductions)
}

func (s *memStore) attempt(key string) *models.BookingAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[key]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (s *memStore) auditTypes() []models.PaymentEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]models.PaymentEventType, 0, len(s.audits))
	for _, a := range s.audits {
		types = append(types, a.EventType)
	}
	return types
}

// TripStore

func (s *memStore) GetTripByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// SubscriptionStore

func (s *memStore) GetActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := []models.Subscription{}
	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.Status == models.SubscriptionActive {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (s *memStore) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

// BookingStore

func (s *memStore) GenerateBookingReference(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("FB-20260314-%06X", s.seq), nil
}

func (s *memStore) GenerateTicketCode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("TK-20260314-%08X", s.seq), nil
}

func (s *memStore) Finalize(ctx context.Context, f *models.Finalization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizeErr != nil {
		return s.finalizeErr
	}

	now := time.Now()
	for _, c := range f.Seats {
		t := s.trips[c.TripID]
		if t == nil || t.RemainingCapacity < c.Seats || !t.IsBookable(now) {
			return &models.TripUnavailableError{TripID: c.TripID, Reason: "sold_out"}
		}
	}
	if d := f.Deduction; d != nil {
		sub := s.subscriptions[d.SubscriptionID]
		if sub == nil || sub.Status != models.SubscriptionActive {
			return models.ErrCreditInsufficient
		}
		if d.CreditType == models.CreditCounted && sub.VoyageCreditsRemaining < d.Voyages {
			return models.ErrCreditInsufficient
		}
		if d.CreditType == models.CreditLegacyMonetary && sub.LegacyCreditFCFA < d.AmountFCFA {
			return models.ErrCreditInsufficient
		}
		if _, dup := s.deductions[f.Booking.ID]; dup {
			return fmt.Errorf("duplicate deduction for booking %s", f.Booking.ID)
		}
	}
	var attempt *models.BookingAttempt
	for _, a := range s.attempts {
		if a.ID == f.AttemptID {
			attempt = a
		}
	}
	if attempt == nil || (attempt.Status != models.AttemptPending && attempt.Status != models.AttemptCharged) {
		return models.ErrAttemptStateChanged
	}

	// all checks passed: apply
	for _, c := range f.Seats {
		s.trips[c.TripID].RemainingCapacity -= c.Seats
	}
	if d := f.Deduction; d != nil {
		sub := s.subscriptions[d.SubscriptionID]
		sub.VoyageCreditsRemaining -= d.Voyages
		sub.LegacyCreditFCFA -= d.AmountFCFA
		s.deductions[f.Booking.ID] = *d
	}
	b := *f.Booking
	b.Status = models.BookingConfirmed
	b.ConfirmedAt = &now
	b.CreatedAt = now
	s.bookings[b.ID] = &b
	f.Booking.Status = models.BookingConfirmed
	f.Booking.ConfirmedAt = &now

	attempt.Status = models.AttemptConfirmed
	attempt.BookingID = &b.ID
	attempt.ConfirmedAt = &now
	return nil
}

func (s *memStore) GetBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// AttemptStore

func (s *memStore) CreateAttempt(ctx context.Context, a *models.BookingAttempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[a.IdempotencyKey]; exists {
		return false, nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = models.AttemptPending
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.attempts[a.IdempotencyKey] = &cp
	return true, nil
}

func (s *memStore) GetAttemptByKey(ctx context.Context, key string) (*models.BookingAttempt, error) {
	return s.attempt(key), nil
}

func (s *memStore) GetStaleAttempts(ctx context.Context, olderThan time.Duration, limit int) ([]models.BookingAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	out := []models.BookingAttempt{}
	for _, a := range s.attempts {
		if a.IsInFlight() && a.UpdatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) RestartAttempt(ctx context.Context, a *models.BookingAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.attempts[a.IdempotencyKey]
	if !ok || !cur.CanRetry() {
		return models.ErrAttemptStateChanged
	}
	a.Status = models.AttemptPending
	a.PaymentReference = nil
	a.ErrorMessage = nil
	a.UpdatedAt = time.Now()
	cp := *a
	s.attempts[a.IdempotencyKey] = &cp
	return nil
}

func (s *memStore) transition(name string, id uuid.UUID, from []models.AttemptStatus, apply func(a *models.BookingAttempt)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markedErrors[name]; err != nil {
		return err
	}
	for _, a := range s.attempts {
		if a.ID != id {
			continue
		}
		for _, st := range from {
			if a.Status == st {
				apply(a)
				a.UpdatedAt = time.Now()
				return nil
			}
		}
		return models.ErrAttemptStateChanged
	}
	return models.ErrAttemptStateChanged
}

func (s *memStore) MarkCharging(ctx context.Context, id uuid.UUID) error {
	return s.transition("charging", id, []models.AttemptStatus{models.AttemptPending}, func(a *models.BookingAttempt) {
		a.Status = models.AttemptCharging
	})
}

func (s *memStore) MarkCharged(ctx context.Context, id uuid.UUID, ref string) error {
	return s.transition("charged", id, []models.AttemptStatus{models.AttemptCharging}, func(a *models.BookingAttempt) {
		a.Status = models.AttemptCharged
		a.PaymentReference = &ref
	})
}

func (s *memStore) MarkPaymentFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.transition("payment_failed", id, []models.AttemptStatus{models.AttemptCharging}, func(a *models.BookingAttempt) {
		a.Status = models.AttemptPaymentFailed
		a.ErrorMessage = &reason
	})
}

func (s *memStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.transition("failed", id, []models.AttemptStatus{models.AttemptPending}, func(a *models.BookingAttempt) {
		a.Status = models.AttemptFailed
		a.ErrorMessage = &reason
	})
}

func (s *memStore) MarkReconciliationRequired(ctx context.Context, id uuid.UUID, reason string) error {
	return s.transition("reconciliation_required", id, []models.AttemptStatus{models.AttemptCharging, models.AttemptCharged}, func(a *models.BookingAttempt) {
		a.Status = models.AttemptReconciliationRequired
		a.ErrorMessage = &reason
	})
}

// AuditLogger

func (s *memStore) Log(ctx context.Context, audit *models.PaymentAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, audit)
	return nil
}

// UserStore

func (s *memStore) CreateUser(ctx context.Context, name, email string, phone *string, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[email]; taken {
		return nil, models.ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Name: name, Email: email, Phone: phone, PasswordHash: passwordHash, Status: "active"}
	s.users[email] = u
	return u, nil
}

func (s *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email], nil
}

func (s *memStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.Booking
	err       error
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, b *models.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, b)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}
