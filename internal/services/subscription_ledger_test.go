package services

import (
	"context"
	"testing"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionLedger_CoveredAmount(t *testing.T) {
	ledger := NewSubscriptionLedger(newMemStore(), NewFareCalculator("XOF"))
	adultNational := []models.Passenger{
		passenger("Awa", models.PassengerAdult, models.NationalityNational),
		passenger("Ibou", models.PassengerChild, models.NationalityAfrican),
	}

	tests := []struct {
		name       string
		sub        *models.Subscription
		passengers []models.Passenger
		want       int64
	}{
		{
			name:       "Unlimited Covers First Passenger",
			sub:        &models.Subscription{CreditType: models.CreditUnlimited},
			passengers: adultNational,
			want:       1500,
		},
		{
			name:       "Counted With Credits",
			sub:        &models.Subscription{CreditType: models.CreditCounted, VoyageCreditsRemaining: 3},
			passengers: adultNational,
			want:       1500,
		},
		{
			name:       "Counted Exhausted",
			sub:        &models.Subscription{CreditType: models.CreditCounted},
			passengers: adultNational,
			want:       0,
		},
		{
			name:       "Legacy Balance Larger Than Fare",
			sub:        &models.Subscription{CreditType: models.CreditLegacyMonetary, LegacyCreditFCFA: 10000},
			passengers: adultNational,
			want:       1500,
		},
		{
			name:       "Legacy Balance Smaller Than Fare Covers Partially",
			sub:        &models.Subscription{CreditType: models.CreditLegacyMonetary, LegacyCreditFCFA: 900},
			passengers: adultNational,
			want:       900,
		},
		{
			name:       "Legacy Empty",
			sub:        &models.Subscription{CreditType: models.CreditLegacyMonetary},
			passengers: adultNational,
			want:       0,
		},
		{
			name: "First Passenger Is A Baby",
			sub:  &models.Subscription{CreditType: models.CreditUnlimited},
			passengers: []models.Passenger{
				passenger("Bébé", models.PassengerBaby, models.NationalityNational),
				passenger("Awa", models.PassengerAdult, models.NationalityNational),
			},
			want: 0,
		},
		{
			name:       "No Subscription",
			passengers: adultNational,
			want:       0,
		},
		{
			name: "No Passengers",
			sub:  &models.Subscription{CreditType: models.CreditUnlimited},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.CoveredAmount(tt.sub, tt.passengers))
		})
	}
}

func TestAmountToPay(t *testing.T) {
	assert.Equal(t, int64(2000), AmountToPay(3500, 1500))
	assert.Equal(t, int64(0), AmountToPay(1500, 1500))
	assert.Equal(t, int64(0), AmountToPay(1000, 1500))
}

func TestSubscriptionLedger_ScenarioC(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	fares := NewFareCalculator("XOF")
	ledger := NewSubscriptionLedger(store, fares)

	userID := uuid.New()
	sub := store.addSubscription(userID, models.CreditUnlimited, 0, 0)
	identity := models.Authenticated(userID, "awa@example.sn")
	passengers := []models.Passenger{
		passenger("Awa", models.PassengerAdult, models.NationalityNational),
		passenger("Ibou", models.PassengerChild, models.NationalityAfrican),
	}

	selected, err := ledger.Select(ctx, identity, sub.ID)
	require.NoError(t, err)

	quote := fares.Quote(passengers, false)
	ledger.ApplyToQuote(&quote, selected, passengers)

	assert.Equal(t, int64(3500), quote.GrandTotal)
	assert.Equal(t, int64(1500), quote.CoveredAmount)
	assert.Equal(t, int64(2000), quote.AmountToPay)

	d := ledger.DeductionFor(selected, quote.CoveredAmount)
	assert.True(t, d.IsNoop())
}

func TestSubscriptionLedger_Select(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewSubscriptionLedger(store, NewFareCalculator("XOF"))

	owner := uuid.New()
	sub := store.addSubscription(owner, models.CreditCounted, 5, 0)
	suspended := store.addSubscription(owner, models.CreditCounted, 5, 0)
	suspended.Status = models.SubscriptionSuspended
	expired := store.addSubscription(owner, models.CreditUnlimited, 0, 0)
	past := time.Now().Add(-time.Hour)
	expired.ValidUntil = &past
	usedUp := store.addSubscription(owner, models.CreditCounted, 0, 0)
	drained := store.addSubscription(owner, models.CreditLegacyMonetary, 0, 0)

	tests := []struct {
		name     string
		identity models.Identity
		subID    uuid.UUID
		wantErr  error
	}{
		{name: "Owner", identity: models.Authenticated(owner, "awa@example.sn"), subID: sub.ID},
		{name: "Guest", identity: models.Guest("awa@example.sn", ""), subID: sub.ID, wantErr: models.ErrAuthRequired},
		{name: "Someone Else", identity: models.Authenticated(uuid.New(), "x@example.sn"), subID: sub.ID, wantErr: models.ErrSubscriptionNotFound},
		{name: "Unknown", identity: models.Authenticated(owner, "awa@example.sn"), subID: uuid.New(), wantErr: models.ErrSubscriptionNotFound},
		{name: "Suspended", identity: models.Authenticated(owner, "awa@example.sn"), subID: suspended.ID, wantErr: models.ErrCreditInsufficient},
		{name: "Expired", identity: models.Authenticated(owner, "awa@example.sn"), subID: expired.ID, wantErr: models.ErrCreditInsufficient},
		{name: "No Voyages Left", identity: models.Authenticated(owner, "awa@example.sn"), subID: usedUp.ID, wantErr: models.ErrCreditInsufficient},
		{name: "No Balance Left", identity: models.Authenticated(owner, "awa@example.sn"), subID: drained.ID, wantErr: models.ErrCreditInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.Select(ctx, tt.identity, tt.subID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.subID, got.ID)
		})
	}
}

func TestSubscriptionLedger_ListActive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewSubscriptionLedger(store, NewFareCalculator("XOF"))

	owner := uuid.New()
	store.addSubscription(owner, models.CreditCounted, 5, 0)
	expired := store.addSubscription(owner, models.CreditUnlimited, 0, 0)
	past := time.Now().Add(-time.Hour)
	expired.ValidUntil = &past
	store.addSubscription(uuid.New(), models.CreditUnlimited, 0, 0)
	store.addSubscription(owner, models.CreditCounted, 0, 0)

	subs, err := ledger.ListActive(ctx, models.Authenticated(owner, "awa@example.sn"))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, models.CreditCounted, subs[0].CreditType)

	subs, err = ledger.ListActive(ctx, models.Guest("awa@example.sn", ""))
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionLedger_DeductionFor(t *testing.T) {
	ledger := NewSubscriptionLedger(newMemStore(), NewFareCalculator("XOF"))
	id := uuid.New()

	counted := ledger.DeductionFor(&models.Subscription{ID: id, CreditType: models.CreditCounted, VoyageCreditsRemaining: 4}, 1500)
	assert.Equal(t, 1, counted.Voyages)
	assert.Zero(t, counted.AmountFCFA)

	legacy := ledger.DeductionFor(&models.Subscription{ID: id, CreditType: models.CreditLegacyMonetary, LegacyCreditFCFA: 900}, 900)
	assert.Equal(t, int64(900), legacy.AmountFCFA)
	assert.Zero(t, legacy.Voyages)

	unlimited := ledger.DeductionFor(&models.Subscription{ID: id, CreditType: models.CreditUnlimited}, 1500)
	assert.True(t, unlimited.IsNoop())
	assert.Equal(t, id, unlimited.SubscriptionID)

	assert.Nil(t, ledger.DeductionFor(nil, 0))
}

func TestSubscriptionLedger_FreeHolder(t *testing.T) {
	ledger := NewSubscriptionLedger(newMemStore(), NewFareCalculator("XOF"))
	passengers := []models.Passenger{
		passenger("Fatou", models.PassengerBaby, models.NationalityNational),
		passenger("Awa", models.PassengerAdult, models.NationalityNational),
	}

	for _, sub := range []*models.Subscription{
		{ID: uuid.New(), CreditType: models.CreditUnlimited},
		{ID: uuid.New(), CreditType: models.CreditCounted, VoyageCreditsRemaining: 3},
		{ID: uuid.New(), CreditType: models.CreditLegacyMonetary, LegacyCreditFCFA: 5000},
	} {
		covered := ledger.CoveredAmount(sub, passengers)
		assert.Zero(t, covered, sub.CreditType)
		assert.Nil(t, ledger.DeductionFor(sub, covered), sub.CreditType)
	}
}
