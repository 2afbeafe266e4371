package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventInitiated              PaymentEventType = "payment_initiated"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventCoveredByCredit        PaymentEventType = "covered_by_credit"
	PaymentEventBookingConfirmed       PaymentEventType = "booking_confirmed"
	PaymentEventBookingConfirmFailed   PaymentEventType = "booking_confirmation_failed"
	PaymentEventReconciliationRequired PaymentEventType = "reconciliation_required"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend PaymentEventSource = "backend"
	PaymentSourceGateway PaymentEventSource = "gateway"
	PaymentSourceSweeper PaymentEventSource = "sweeper"
)

// PaymentAudit is an immutable audit log entry for a settlement event
type PaymentAudit struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	AttemptID        *uuid.UUID `json:"attempt_id,omitempty" db:"attempt_id"`
	PaymentReference *string    `json:"payment_reference,omitempty" db:"payment_reference"`
	PaymentMethod    *string    `json:"payment_method,omitempty" db:"payment_method"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amounts in FCFA
	ExpectedAmount *int64  `json:"expected_amount,omitempty" db:"expected_amount"`
	ChargedAmount  *int64  `json:"charged_amount,omitempty" db:"charged_amount"`
	Currency       *string `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool   `json:"amounts_match,omitempty" db:"amounts_match"`

	RequestPayload  JSONB `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload JSONB `json:"response_payload,omitempty" db:"response_payload"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`

	ProcessingTimeMs *int    `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IdempotencyKey   *string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetAttempt sets the attempt the event belongs to
func (pa *PaymentAudit) SetAttempt(attemptID uuid.UUID) *PaymentAudit {
	pa.AttemptID = &attemptID
	return pa
}

// SetPaymentReference sets the gateway (or cash) reference
func (pa *PaymentAudit) SetPaymentReference(ref string) *PaymentAudit {
	if ref != "" {
		pa.PaymentReference = &ref
	}
	return pa
}

// SetPaymentMethod sets the settlement method
func (pa *PaymentAudit) SetPaymentMethod(method PaymentMethod) *PaymentAudit {
	m := string(method)
	pa.PaymentMethod = &m
	return pa
}

// SetAmounts sets and verifies amounts, returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, charged int64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ChargedAmount = &charged
	pa.Currency = &currency
	match := expected == charged
	pa.AmountsMatch = &match
	return match
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string, code *string) *PaymentAudit {
	pa.ErrorMessage = &message
	pa.ErrorCode = code
	return pa
}

// SetRequestPayload sets the request payload sent
func (pa *PaymentAudit) SetRequestPayload(payload map[string]interface{}) *PaymentAudit {
	pa.RequestPayload = JSONB(payload)
	return pa
}

// SetResponsePayload sets the response payload received
func (pa *PaymentAudit) SetResponsePayload(payload map[string]interface{}) *PaymentAudit {
	pa.ResponsePayload = JSONB(payload)
	return pa
}

// SetProcessingTime calculates and sets processing time
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	return pa
}

// SetIdempotencyKey sets the idempotency key
func (pa *PaymentAudit) SetIdempotencyKey(key string) *PaymentAudit {
	pa.IdempotencyKey = &key
	return pa
}
