package models

import "github.com/google/uuid"

// WizardStep is a state of the booking wizard
type WizardStep string

const (
	StepIdentification WizardStep = "identification"
	StepPassengers     WizardStep = "passengers"
	StepReview         WizardStep = "review"
	StepPayment        WizardStep = "payment"
	StepCommitting     WizardStep = "committing"
	StepConfirmed      WizardStep = "confirmed"
	StepFailed         WizardStep = "failed"
)

// WizardState is the client-held wizard state sent with every advance call.
// Nothing here is persisted until commit.
type WizardState struct {
	Step           WizardStep     `json:"step"`
	IdentityInput  *IdentityInput `json:"identity_input,omitempty"`
	Identity       *Identity      `json:"identity,omitempty"`
	TripID         uuid.UUID      `json:"trip_id"`
	ReturnTripID   *uuid.UUID     `json:"return_trip_id,omitempty"`
	Passengers     []Passenger    `json:"passengers"`
	SubscriptionID *uuid.UUID     `json:"subscription_id,omitempty"`
	PaymentMethod  *PaymentMethod `json:"payment_method,omitempty"`
	PaymentPhone   string         `json:"payment_phone,omitempty"`
}

// AdvanceResponse is returned after a successful step transition
type AdvanceResponse struct {
	Step          WizardStep     `json:"step"`
	Identity      *Identity      `json:"identity,omitempty"`
	Quote         *FareQuote     `json:"quote,omitempty"`
	AccessToken   string         `json:"access_token,omitempty"`
	Subscriptions []Subscription `json:"subscriptions,omitempty"`
}
