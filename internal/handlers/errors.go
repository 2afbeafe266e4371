package handlers

import (
	"errors"
	"net/http"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError translates a domain error into its HTTP response
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validationErr  *models.ValidationError
		conflictErr    *models.IdentityConflictError
		unavailableErr *models.TripUnavailableError
		paymentErr     *models.PaymentError
		reconcileErr   *models.ReconciliationError
	)

	// Reconciliation first: it wraps whatever broke after the charge
	switch {
	case errors.As(err, &reconcileErr):
		// Details are in the logs and the attempt record, never in the response
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "booking_not_confirmed",
			"code":       "CONTACT_SUPPORT",
			"message":    "Your payment was received but the booking could not be confirmed. Please contact support.",
			"attempt_id": reconcileErr.AttemptID,
		})

	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation_error",
			"code":    "VALIDATION_ERROR",
			"field":   validationErr.Field,
			"message": validationErr.Msg,
		})

	case errors.Is(err, models.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"code":    "AUTH_REQUIRED",
			"message": "Please log in to continue with this account",
		})

	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"code":    "INVALID_CREDENTIALS",
			"message": "Invalid email or password",
		})

	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "identity_conflict",
			"code":    "EMAIL_TAKEN",
			"message": "An account already exists for this email. Please log in.",
		})

	case errors.As(err, &unavailableErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "trip_unavailable",
			"code":    "TRIP_UNAVAILABLE",
			"message": "This crossing can no longer be booked",
			"trip_id": unavailableErr.TripID,
			"reason":  unavailableErr.Reason,
		})

	case errors.Is(err, models.ErrCreditInsufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "credit_insufficient",
			"code":    "CREDIT_INSUFFICIENT",
			"message": "The selected subscription has no credit left",
		})

	case errors.Is(err, models.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"code":    "SUBSCRIPTION_NOT_FOUND",
			"message": "Subscription not found",
		})

	case errors.Is(err, models.ErrCommitInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "commit_in_progress",
			"code":    "COMMIT_IN_PROGRESS",
			"message": "This booking is already being processed",
		})

	case errors.As(err, &paymentErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "payment_failed",
			"code":    "PAYMENT_" + paymentCode(paymentErr.Kind),
			"message": paymentMessage(paymentErr.Kind),
		})

	case errors.Is(err, models.ErrTokenMismatch):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "identity_unavailable",
			"code":    "TRY_AGAIN",
			"message": "Account service is busy, please try again",
		})

	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"code":    "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		})
	}
}

func paymentCode(kind models.PaymentErrorKind) string {
	switch kind {
	case models.PaymentDeclined:
		return "DECLINED"
	case models.PaymentTimeout:
		return "TIMEOUT"
	case models.PaymentInvalidNumber:
		return "INVALID_NUMBER"
	}
	return "GATEWAY_ERROR"
}

func paymentMessage(kind models.PaymentErrorKind) string {
	switch kind {
	case models.PaymentDeclined:
		return "The payment was declined. You have not been charged."
	case models.PaymentTimeout:
		return "The payment provider did not answer in time. Check your wallet before trying again."
	case models.PaymentInvalidNumber:
		return "The wallet number was not recognised by the operator"
	}
	return "The payment could not be processed. You have not been charged."
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"code":    "INVALID_REQUEST",
		"message": err.Error(),
	})
}
