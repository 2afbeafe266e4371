package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/middleware"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/angewarren12/billeterie-maritime-sub000/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IdempotencyKeyHeader carries the commit idempotency key
const IdempotencyKeyHeader = "Idempotency-Key"

// BookingWizard validates wizard steps
type BookingWizard interface {
	Advance(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.AdvanceResponse, error)
	Quote(ctx context.Context, caller *models.Identity, state *models.WizardState) (*models.FareQuote, error)
}

// BookingCommitter runs the idempotent commit
type BookingCommitter interface {
	Commit(ctx context.Context, req *models.CommitRequest) (*models.CommitResponse, error)
	GetAttemptStatus(ctx context.Context, key string) (*models.AttemptStatusResponse, error)
}

// SubscriptionLister lists redeemable subscriptions
type SubscriptionLister interface {
	ListActive(ctx context.Context, identity models.Identity) ([]models.Subscription, error)
}

// BookingHandler handles the booking wizard and commit endpoints
type BookingHandler struct {
	wizard        BookingWizard
	committer     BookingCommitter
	subscriptions SubscriptionLister
	logger        *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(wizard BookingWizard, committer BookingCommitter, subscriptions SubscriptionLister, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		wizard:        wizard,
		committer:     committer,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// commitRequestBody is the JSON body of POST /booking/commit. Identity is the
// identification step as entered; a bearer token overrides it.
type commitRequestBody struct {
	IdempotencyKey string                `json:"idempotency_key"`
	TripID         uuid.UUID             `json:"trip_id"`
	ReturnTripID   *uuid.UUID            `json:"return_trip_id,omitempty"`
	Identity       *models.IdentityInput `json:"identity"`
	Passengers     []models.Passenger    `json:"passengers"`
	SubscriptionID *uuid.UUID            `json:"subscription_id,omitempty"`
	PaymentMethod  *models.PaymentMethod `json:"payment_method,omitempty"`
	PaymentPhone   string                `json:"payment_phone,omitempty"`
}

// ============================================================================
// QUOTE - POST /api/v1/booking/quote
// ============================================================================

// Quote returns the fare breakdown for the passengers entered so far
func (h *BookingHandler) Quote(c *gin.Context) {
	var state models.WizardState
	if err := c.ShouldBindJSON(&state); err != nil {
		badRequest(c, err)
		return
	}

	quote, err := h.wizard.Quote(c.Request.Context(), middleware.GetIdentity(c), &state)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ============================================================================
// WIZARD - POST /api/v1/booking/wizard/advance
// ============================================================================

// Advance validates the current wizard step and returns the next one
func (h *BookingHandler) Advance(c *gin.Context) {
	var state models.WizardState
	if err := c.ShouldBindJSON(&state); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.wizard.Advance(c.Request.Context(), middleware.GetIdentity(c), &state)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ============================================================================
// SUBSCRIPTIONS - GET /api/v1/booking/subscriptions
// ============================================================================

// ListSubscriptions returns the caller's redeemable subscriptions
func (h *BookingHandler) ListSubscriptions(c *gin.Context) {
	caller := middleware.GetIdentity(c)
	if caller == nil {
		respondError(c, h.logger, models.ErrAuthRequired)
		return
	}

	subs, err := h.subscriptions.ListActive(c.Request.Context(), *caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// ============================================================================
// COMMIT - POST /api/v1/booking/commit
// ============================================================================

// Commit confirms the booking. 201 on a new booking, 200 when the key was
// already committed.
func (h *BookingHandler) Commit(c *gin.Context) {
	var body commitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" {
		key = strings.TrimSpace(body.IdempotencyKey)
	}

	identity, err := commitIdentity(middleware.GetIdentity(c), body.Identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	req := &models.CommitRequest{
		IdempotencyKey: key,
		TripID:         body.TripID,
		ReturnTripID:   body.ReturnTripID,
		Identity:       identity,
		Passengers:     body.Passengers,
		SubscriptionID: body.SubscriptionID,
		PaymentMethod:  body.PaymentMethod,
		PaymentPhone:   strings.TrimSpace(body.PaymentPhone),
		ClientDevice:   utils.ClientDevice(c),
	}

	resp, err := h.committer.Commit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// commitIdentity picks the identity the commit runs as. Only a verified token
// yields an authenticated identity; a body claiming an account does not.
// Credentials are never checked here: login belongs to the identification step.
func commitIdentity(caller *models.Identity, input *models.IdentityInput) (models.Identity, error) {
	if caller != nil && caller.IsAuthenticated() {
		return *caller, nil
	}
	if input == nil {
		return models.Identity{}, nil
	}

	if input.CreateAccount || input.Mode == models.ModeCreateAccount {
		identity := models.PendingRegistration(strings.TrimSpace(input.Name), strings.TrimSpace(input.Email), input.Password)
		identity.Phone = strings.TrimSpace(input.Phone)
		return identity, nil
	}

	switch input.Mode {
	case models.ModeGuest:
		return models.Guest(strings.TrimSpace(input.Email), strings.TrimSpace(input.Phone)), nil
	case models.ModeExistingAccount:
		return models.Identity{Kind: models.IdentityAuthenticated, Email: strings.TrimSpace(input.Email)}, nil
	case models.ModeLogin:
		return models.Identity{}, models.NewValidationError("identity.mode", "log in on the identification step and commit with the access token")
	}
	return models.Identity{}, nil
}

// ============================================================================
// ATTEMPT LOOKUP - GET /api/v1/booking/attempts/:key
// ============================================================================

// GetAttempt returns the status of a commit attempt
func (h *BookingHandler) GetAttempt(c *gin.Context) {
	status, err := h.committer.GetAttemptStatus(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"code":    "ATTEMPT_NOT_FOUND",
			"message": "No booking attempt for this key",
		})
		return
	}
	c.JSON(http.StatusOK, status)
}
