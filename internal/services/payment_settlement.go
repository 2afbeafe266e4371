package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/metrics"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/mobilemoney"
	"github.com/angewarren12/billeterie-maritime-sub000/pkg/validator"
	"github.com/sirupsen/logrus"
)

var (
	ErrPaymentDeclined = mobilemoney.ErrDeclined
	ErrPaymentTimeout  = mobilemoney.ErrTimeout
	ErrInvalidNumber   = mobilemoney.ErrInvalidNumber
)

// PaymentGateway charges a mobile-money wallet
type PaymentGateway interface {
	Charge(ctx context.Context, provider, msisdn string, amount int64, currency, invoiceID string) (*mobilemoney.ChargeResponse, error)
}

// SettlementResult is a successful charge of the residual amount
type SettlementResult struct {
	Reference string
	Method    models.PaymentMethod
	Amount    int64
	Duration  time.Duration
}

// PaymentSettlement charges the residual of a booking. Cash is collected at
// the counter and never leaves the process; mobile money goes through the
// gateway. It does not retry.
type PaymentSettlement struct {
	gateway  PaymentGateway
	phones   *validator.PhoneValidator
	currency string
	logger   *logrus.Logger
}

// NewPaymentSettlement creates a new PaymentSettlement
func NewPaymentSettlement(gateway PaymentGateway, currency string, logger *logrus.Logger) *PaymentSettlement {
	if currency == "" {
		currency = "XOF"
	}
	return &PaymentSettlement{
		gateway:  gateway,
		phones:   validator.NewPhoneValidator(),
		currency: currency,
		logger:   logger,
	}
}

// Currency returns the settlement currency
func (s *PaymentSettlement) Currency() string {
	return s.currency
}

// Charge settles amount with the given method. invoiceID identifies the
// attempt at the gateway.
func (s *PaymentSettlement) Charge(ctx context.Context, method models.PaymentMethod, phone string, amount int64, invoiceID string) (*SettlementResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("nothing to charge")
	}

	start := time.Now()

	switch {
	case method == models.PaymentCash:
		return &SettlementResult{Reference: cashReference(invoiceID), Method: method, Amount: amount, Duration: time.Since(start)}, nil

	case method.IsMobileMoney():
		msisdn, err := s.phones.E164(phone)
		if err != nil {
			return nil, &models.PaymentError{Kind: models.PaymentInvalidNumber, Err: fmt.Errorf("%w: %v", ErrInvalidNumber, err)}
		}
		if s.gateway == nil {
			return nil, &models.PaymentError{Kind: models.PaymentGatewayError, Err: mobilemoney.ErrNotConfigured}
		}

		resp, err := s.gateway.Charge(ctx, string(method), msisdn, amount, s.currency, invoiceID)
		elapsed := time.Since(start)
		metrics.PaymentDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"method":     method,
				"invoice_id": invoiceID,
				"amount":     amount,
				"error":      err.Error(),
			}).Warn("Mobile money charge failed")
			return nil, &models.PaymentError{Kind: classifyPaymentError(err), Err: err}
		}

		charged := resp.Amount
		if charged == 0 {
			charged = amount
		}
		return &SettlementResult{Reference: resp.TransactionID, Method: method, Amount: charged, Duration: elapsed}, nil
	}

	return nil, models.NewValidationError("payment_method", fmt.Sprintf("unsupported payment method %q", method))
}

// cashReference derives the counter receipt reference from the attempt
func cashReference(invoiceID string) string {
	id := strings.ToUpper(strings.ReplaceAll(invoiceID, "-", ""))
	if len(id) > 12 {
		id = id[:12]
	}
	return "CASH-" + id
}

func classifyPaymentError(err error) models.PaymentErrorKind {
	switch {
	case errors.Is(err, ErrPaymentDeclined):
		return models.PaymentDeclined
	case errors.Is(err, ErrPaymentTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.PaymentTimeout
	case errors.Is(err, ErrInvalidNumber):
		return models.PaymentInvalidNumber
	}
	return models.PaymentGatewayError
}
