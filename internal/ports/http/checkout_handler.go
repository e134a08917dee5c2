package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/billing"
	"github.com/videolens/server/internal/domain/checkout"
	"github.com/videolens/server/internal/domain/plan"
	apperrors "github.com/videolens/server/internal/utils/errors"
)

// CheckoutService starts provider checkouts and looks up the ones a user started.
type CheckoutService interface {
	CreateCheckoutForPlan(ctx context.Context, userID uuid.UUID, target plan.ID) (*billing.CheckoutResult, error)
	GetCheckoutSession(ctx context.Context, userID uuid.UUID, sessionRef string) (*billing.CheckoutSession, error)
}

// Reconciliations runs checkout reconciliations on behalf of their owners.
type Reconciliations interface {
	Start(req checkout.Request) (uuid.UUID, checkout.Snapshot, error)
	Get(id, owner uuid.UUID) (checkout.Snapshot, error)
	Retry(id, owner uuid.UUID) (checkout.Snapshot, error)
	Dismiss(id, owner uuid.UUID) error
}

// CheckoutHandler handles checkout creation and the return-from-checkout flow.
type CheckoutHandler struct {
	service         CheckoutService
	reconciliations Reconciliations
	resolver        *plan.Resolver
	errorHandler    *ErrorHandler
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service CheckoutService, reconciliations Reconciliations, resolver *plan.Resolver) *CheckoutHandler {
	if resolver == nil {
		resolver = plan.NewResolver(nil)
	}
	return &CheckoutHandler{
		service:         service,
		reconciliations: reconciliations,
		resolver:        resolver,
		errorHandler:    NewErrorHandler(),
	}
}

// RegisterProtectedRoutes registers authenticated checkout routes.
// guards run before checkout creation only.
func (h *CheckoutHandler) RegisterProtectedRoutes(r *gin.RouterGroup, guards ...gin.HandlerFunc) {
	co := r.Group("/checkout")
	{
		co.POST("", append(guards, h.CreateCheckout)...)

		rec := co.Group("/reconciliations")
		rec.POST("", h.StartReconciliation)
		rec.GET("/:id", h.GetReconciliation)
		rec.POST("/:id/retry", h.RetryReconciliation)
		rec.DELETE("/:id", h.DismissReconciliation)
	}
}

// CreateCheckoutRequest represents a request to buy a plan.
type CreateCheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// CreateCheckout handles POST /checkout
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}

	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	target, known := h.resolver.NormalizeLabel(req.Plan)
	if !known {
		h.errorHandler.HandleError(c, apperrors.BadRequest("plan_not_purchasable", "Plan cannot be purchased").
			WithDetails(map[string]any{"plan": req.Plan}))
		return
	}

	result, err := h.service.CreateCheckoutForPlan(c.Request.Context(), userID, target)
	if err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	respondCreated(c, result)
}

// StartReconciliationRequest describes a return from the provider's checkout page.
type StartReconciliationRequest struct {
	SessionID string `json:"session_id"`
	PlanHint  string `json:"plan_hint"`
	// Baseline is the plan shown before checkout. Ignored when the session is known.
	Baseline string `json:"baseline"`
}

// ReconciliationResponse is a reconciliation snapshot with its id.
type ReconciliationResponse struct {
	ID uuid.UUID `json:"id"`
	checkout.Snapshot
}

// StartReconciliation handles POST /checkout/reconciliations
func (h *CheckoutHandler) StartReconciliation(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}

	var req StartReconciliationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	cr := checkout.Request{
		UserID:     userID,
		SessionRef: req.SessionID,
		PlanHint:   h.knownPlan(req.PlanHint),
		Baseline:   h.knownPlan(req.Baseline),
	}

	if req.SessionID != "" {
		session, err := h.service.GetCheckoutSession(c.Request.Context(), userID, req.SessionID)
		if err != nil {
			h.errorHandler.HandleError(c, err)
			return
		}
		cr.Baseline = session.Baseline
		if cr.PlanHint == "" {
			cr.PlanHint = session.Plan
		}
	}

	id, snap, err := h.reconciliations.Start(cr)
	if err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	respondAccepted(c, ReconciliationResponse{ID: id, Snapshot: snap})
}

// GetReconciliation handles GET /checkout/reconciliations/:id
func (h *CheckoutHandler) GetReconciliation(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	snap, err := h.reconciliations.Get(id, userID)
	if err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	respondSuccess(c, ReconciliationResponse{ID: id, Snapshot: snap})
}

// RetryReconciliation handles POST /checkout/reconciliations/:id/retry
func (h *CheckoutHandler) RetryReconciliation(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	snap, err := h.reconciliations.Retry(id, userID)
	if err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	respondAccepted(c, ReconciliationResponse{ID: id, Snapshot: snap})
}

// DismissReconciliation handles DELETE /checkout/reconciliations/:id
func (h *CheckoutHandler) DismissReconciliation(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.reconciliations.Dismiss(id, userID); err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// knownPlan normalizes a client supplied label, dropping ones the catalog does not know.
func (h *CheckoutHandler) knownPlan(label string) plan.ID {
	if label == "" {
		return ""
	}
	id, known := h.resolver.NormalizeLabel(label)
	if !known {
		return ""
	}
	return id
}
