package services

import (
	"context"
	"fmt"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/validator"
	"github.com/sirupsen/logrus"
)

// BookingWizard validates one wizard step at a time and says which step comes
// next. It persists nothing; the client carries the state until commit.
type BookingWizard struct {
	resolver      *AccountResolver
	ledger        *SubscriptionLedger
	fares         *FareCalculator
	phones        *validator.PhoneValidator
	maxPassengers int
	logger        *logrus.Logger
}

// NewBookingWizard creates a new BookingWizard
func NewBookingWizard(resolver *AccountResolver, ledger *SubscriptionLedger, fares *FareCalculator, maxPassengers int, logger *logrus.Logger) *BookingWizard {
	return &BookingWizard{
		resolver:      resolver,
		ledger:        ledger,
		fares:         fares,
		phones:        validator.NewPhoneValidator(),
		maxPassengers: maxPassengers,
		logger:        logger,
	}
}

// Advance checks the guard of the current step. On success the response names
// the next step; on a validation error the wizard stays where it is.
func (w *BookingWizard) Advance(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.AdvanceResponse, error) {
	switch state.Step {
	case models.StepIdentification:
		identity, session, err := w.resolver.ResolveIdentity(ctx, caller, state.IdentityInput)
		if err != nil {
			return nil, err
		}
		resp := &models.AdvanceResponse{Step: models.StepPassengers, Identity: &identity}
		if session != nil {
			resp.AccessToken = session.AccessToken
		}
		subs, err := w.ledger.ListActive(ctx, identity)
		if err != nil {
			return nil, err
		}
		resp.Subscriptions = subs
		return resp, nil

	case models.StepPassengers:
		if err := validatePassengers(state.Passengers, w.maxPassengers); err != nil {
			return nil, err
		}
		quote, err := w.quote(ctx, caller, state)
		if err != nil {
			return nil, err
		}
		return &models.AdvanceResponse{Step: models.StepReview, Quote: quote}, nil

	case models.StepReview:
		quote, err := w.quote(ctx, caller, state)
		if err != nil {
			return nil, err
		}
		return &models.AdvanceResponse{Step: models.StepPayment, Quote: quote}, nil

	case models.StepPayment:
		if err := validatePassengers(state.Passengers, w.maxPassengers); err != nil {
			return nil, err
		}
		quote, err := w.quote(ctx, caller, state)
		if err != nil {
			return nil, err
		}
		if err := validatePayment(w.phones, state.PaymentMethod, state.PaymentPhone, quote.AmountToPay); err != nil {
			return nil, err
		}
		return &models.AdvanceResponse{Step: models.StepCommitting, Quote: quote}, nil

	case models.StepCommitting, models.StepConfirmed, models.StepFailed:
		return nil, models.NewValidationError("step", fmt.Sprintf("step %q is not advanced through the wizard", state.Step))
	}

	return nil, models.NewValidationError("step", fmt.Sprintf("unknown step %q", state.Step))
}

// Quote prices the passenger list, applying the selected subscription when
// the caller owns it
func (w *BookingWizard) Quote(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.FareQuote, error) {
	return w.quote(ctx, caller, state)
}

func (w *BookingWizard) quote(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.FareQuote, error) {
	quote := w.fares.Quote(state.Passengers, state.ReturnTripID != nil)
	if state.SubscriptionID == nil {
		return &quote, nil
	}

	identity := models.Identity{}
	if caller != nil {
		identity = *caller
	}
	sub, err := w.ledger.Select(ctx, identity, *state.SubscriptionID)
	if err != nil {
		return nil, err
	}
	w.ledger.ApplyToQuote(&quote, sub, state.Passengers)
	return &quote, nil
}

// validatePassengers requires at least one passenger, all named, within the limit
func validatePassengers(passengers []models.Passenger, maxPassengers int) error {
	if len(passengers) == 0 {
		return models.NewValidationError("passengers", "at least one passenger is required")
	}
	if maxPassengers > 0 && len(passengers) > maxPassengers {
		return models.NewValidationError("passengers", fmt.Sprintf("at most %d passengers per booking", maxPassengers))
	}
	for i, p := range passengers {
		if !p.HasName() {
			return models.NewValidationError(fmt.Sprintf("passengers[%d].name", i), "passenger name is required")
		}
	}
	return nil
}

// validatePayment requires a method when something is due, and a valid
// wallet number for mobile money
func validatePayment(phones *validator.PhoneValidator, method *models.PaymentMethod, phone string, amountToPay int64) error {
	if amountToPay <= 0 {
		return nil
	}
	if method == nil || *method == "" {
		return models.NewValidationError("payment_method", "payment method is required")
	}
	if !method.IsValid() {
		return models.NewValidationError("payment_method", fmt.Sprintf("unsupported payment method %q", *method))
	}
	if method.IsMobileMoney() {
		if phone == "" {
			return models.NewValidationError("payment_phone", "payment phone is required for mobile money")
		}
		if _, err := phones.Validate(phone); err != nil {
			return models.NewValidationError("payment_phone", err.Error())
		}
	}
	return nil
}
