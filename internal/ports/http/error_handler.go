package http

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/videolens/server/internal/domain/billing"
	"github.com/videolens/server/internal/domain/checkout"
	"github.com/videolens/server/internal/domain/entitlement"
	"github.com/videolens/server/internal/domain/plan"
	apperrors "github.com/videolens/server/internal/utils/errors"
)

// ErrorHandler provides centralized error handling for HTTP responses.
type ErrorHandler struct{}

// NewErrorHandler creates a new error handler.
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// HandleError maps err to a JSON error response and records it on the context for request logging.
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	appErr := h.toAppError(err)
	c.JSON(appErr.StatusCode, ErrorResponse{
		Error:   appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// toAppError maps domain sentinels to responses. AppErrors built by handlers
// pass through unchanged; anything else is internal.
func (h *ErrorHandler) toAppError(err error) *apperrors.AppError {
	switch {
	// Plan lookups
	case errors.Is(err, plan.ErrUnknownFeature):
		return apperrors.NotFound("unknown_feature", "Unknown feature")
	case errors.Is(err, plan.ErrUnknownQuota):
		return apperrors.NotFound("unknown_quota", "Unknown quota")

	// Checkout creation
	case errors.Is(err, billing.ErrPlanNotPurchasable):
		return apperrors.BadRequest("plan_not_purchasable", "Plan cannot be purchased")
	case errors.Is(err, billing.ErrNotAnUpgrade):
		return apperrors.Conflict("not_an_upgrade", "Plan is not above the current plan")
	case errors.Is(err, billing.ErrPriceNotConfigured):
		return apperrors.Unprocessable("price_not_configured", "Plan is not available for purchase")
	case errors.Is(err, billing.ErrCheckoutSessionNotFound):
		return apperrors.NotFound("checkout_session_not_found", "Checkout session not found")
	case errors.Is(err, billing.ErrMissingSessionRef):
		return apperrors.BadRequest("missing_session_id", "Checkout session id is required")
	case errors.Is(err, billing.ErrInvalidSignature):
		return apperrors.BadRequest("invalid_signature", "Invalid webhook signature")
	case errors.Is(err, billing.ErrProviderUnavailable):
		return apperrors.ServiceUnavailable("provider_unavailable", "Payment provider unavailable")

	// Reconciliation
	case errors.Is(err, checkout.ErrReconciliationNotFound):
		return apperrors.NotFound("reconciliation_not_found", "Reconciliation not found")
	case errors.Is(err, checkout.ErrNotRetryable):
		return apperrors.Conflict("not_retryable", "Reconciliation can only be retried after an error or once it has stopped retrying")
	case errors.Is(err, checkout.ErrReconciliationInFlight):
		return apperrors.Conflict("reconciliation_in_flight", "Reconciliation is already in progress")
	case errors.Is(err, checkout.ErrReconcilerClosed), errors.Is(err, checkout.ErrManagerStopped):
		return apperrors.ServiceUnavailable("reconciliation_closed", "Reconciliation is no longer running")

	// Entitlements
	case errors.Is(err, entitlement.ErrProfileUnavailable):
		return apperrors.ServiceUnavailable("profile_unavailable", "Profile is temporarily unavailable")
	}

	return apperrors.As(err)
}
