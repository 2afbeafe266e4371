package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditType represents how a subscription plan is redeemed
type CreditType string

const (
	CreditUnlimited      CreditType = "unlimited"
	CreditCounted        CreditType = "counted"
	CreditLegacyMonetary CreditType = "legacy_monetary"
)

// SubscriptionStatus represents the lifecycle status of a subscription
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription is a prepaid badge owned by exactly one user
type Subscription struct {
	ID                     uuid.UUID          `json:"id" db:"id"`
	UserID                 uuid.UUID          `json:"user_id" db:"user_id"`
	PlanName               string             `json:"plan_name" db:"plan_name"`
	CreditType             CreditType         `json:"credit_type" db:"credit_type"`
	VoyageCreditsRemaining int                `json:"voyage_credits_remaining" db:"voyage_credits_remaining"`
	LegacyCreditFCFA       int64              `json:"legacy_credit_fcfa" db:"legacy_credit_fcfa"`
	Status                 SubscriptionStatus `json:"status" db:"status"`
	ValidUntil             *time.Time         `json:"valid_until,omitempty" db:"valid_until"`
	CreatedAt              time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the subscription can be redeemed at the given time
func (s *Subscription) IsActive(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.ValidUntil == nil || s.ValidUntil.After(now)
}

// HasCredit reports whether the plan has anything left to redeem
func (s *Subscription) HasCredit() bool {
	switch s.CreditType {
	case CreditUnlimited:
		return true
	case CreditCounted:
		return s.VoyageCreditsRemaining > 0
	case CreditLegacyMonetary:
		return s.LegacyCreditFCFA > 0
	}
	return false
}

// CreditDeduction is what a commit takes from a subscription
type CreditDeduction struct {
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	CreditType     CreditType `json:"credit_type"`
	Voyages        int        `json:"voyages"`     // counted plans
	AmountFCFA     int64      `json:"amount_fcfa"` // legacy monetary plans
}

// IsNoop reports whether the deduction leaves the balance untouched (unlimited plans)
func (d CreditDeduction) IsNoop() bool {
	return d.Voyages == 0 && d.AmountFCFA == 0
}

// SubscriptionDeduction is the per-booking deduction record (subscription_deductions table)
type SubscriptionDeduction struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	BookingID      uuid.UUID  `json:"booking_id" db:"booking_id"`
	SubscriptionID uuid.UUID  `json:"subscription_id" db:"subscription_id"`
	CreditType     CreditType `json:"credit_type" db:"credit_type"`
	Voyages        int        `json:"voyages" db:"voyages"`
	AmountFCFA     int64      `json:"amount_fcfa" db:"amount_fcfa"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
