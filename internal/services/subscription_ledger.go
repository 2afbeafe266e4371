package services

import (
	"context"
	"fmt"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
)

// SubscriptionStore defines the subscription reads used by the ledger
type SubscriptionStore interface {
	GetActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
}

// SubscriptionLedger computes what a badge can offset. It never writes: the
// deduction it describes is applied by the commit transaction.
type SubscriptionLedger struct {
	store SubscriptionStore
	fares *FareCalculator
	now   func() time.Time
}

// NewSubscriptionLedger creates a new SubscriptionLedger
func NewSubscriptionLedger(store SubscriptionStore, fares *FareCalculator) *SubscriptionLedger {
	return &SubscriptionLedger{store: store, fares: fares, now: time.Now}
}

// ListActive returns the redeemable subscriptions of an authenticated identity.
// Guests and pending registrations have none.
func (l *SubscriptionLedger) ListActive(ctx context.Context, identity models.Identity) ([]models.Subscription, error) {
	if !identity.IsAuthenticated() {
		return []models.Subscription{}, nil
	}

	subs, err := l.store.GetActiveSubscriptions(ctx, *identity.UserID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	active := make([]models.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActive(now) && s.HasCredit() {
			active = append(active, s)
		}
	}
	return active, nil
}

// Select loads the subscription chosen for a booking and checks that the
// identity owns it and can still redeem it
func (l *SubscriptionLedger) Select(ctx context.Context, identity models.Identity, subscriptionID uuid.UUID) (*models.Subscription, error) {
	if !identity.IsAuthenticated() {
		return nil, models.ErrAuthRequired
	}

	sub, err := l.store.GetSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub == nil || sub.UserID != *identity.UserID {
		return nil, models.ErrSubscriptionNotFound
	}
	if !sub.IsActive(l.now()) || !sub.HasCredit() {
		return nil, models.ErrCreditInsufficient
	}
	return sub, nil
}

// CoveredAmount is the part of the fare a subscription offsets: only the first
// passenger's single-leg fare, and never more than the plan can redeem
func (l *SubscriptionLedger) CoveredAmount(sub *models.Subscription, passengers []models.Passenger) int64 {
	if sub == nil || len(passengers) == 0 {
		return 0
	}
	holderFare := l.fares.Price(passengers[0].Type, passengers[0].NationalityGroup)

	switch sub.CreditType {
	case models.CreditUnlimited:
		return holderFare
	case models.CreditCounted:
		if sub.VoyageCreditsRemaining > 0 {
			return holderFare
		}
		return 0
	case models.CreditLegacyMonetary:
		if sub.LegacyCreditFCFA <= 0 {
			return 0
		}
		return min(sub.LegacyCreditFCFA, holderFare)
	}
	return 0
}

// AmountToPay is the residual charged after the subscription offset
func AmountToPay(grandTotal, covered int64) int64 {
	return max(grandTotal-covered, 0)
}

// DeductionFor describes what the commit takes from the subscription for the
// given covered amount. Nothing is taken when nothing was covered, as for a
// holder who travels free.
func (l *SubscriptionLedger) DeductionFor(sub *models.Subscription, covered int64) *models.CreditDeduction {
	if sub == nil || covered <= 0 {
		return nil
	}
	d := &models.CreditDeduction{SubscriptionID: sub.ID, CreditType: sub.CreditType}
	switch sub.CreditType {
	case models.CreditCounted:
		d.Voyages = 1
	case models.CreditLegacyMonetary:
		d.AmountFCFA = covered
	}
	return d
}

// ApplyToQuote fills the covered amount and residual of a quote
func (l *SubscriptionLedger) ApplyToQuote(quote *models.FareQuote, sub *models.Subscription, passengers []models.Passenger) {
	quote.CoveredAmount = l.CoveredAmount(sub, passengers)
	quote.AmountToPay = AmountToPay(quote.GrandTotal, quote.CoveredAmount)
}
