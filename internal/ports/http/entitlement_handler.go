package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/entitlement"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/domain/usage"
	apperrors "github.com/videolens/server/internal/utils/errors"
)

// EntitlementService builds entitlement snapshots and upgrade suggestions.
type EntitlementService interface {
	GetSnapshot(ctx context.Context, userID uuid.UUID) (*entitlement.Snapshot, error)
	RecommendUpgrade(ctx context.Context, userID uuid.UUID, reason usage.Reason) (*entitlement.Recommendation, error)
}

// EntitlementHandler serves the caller's plan and usage.
type EntitlementHandler struct {
	service      EntitlementService
	errorHandler *ErrorHandler
}

// NewEntitlementHandler creates a new entitlement handler.
func NewEntitlementHandler(service EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{
		service:      service,
		errorHandler: NewErrorHandler(),
	}
}

// RegisterProtectedRoutes registers authenticated entitlement routes.
func (h *EntitlementHandler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	me := r.Group("/me")
	{
		me.GET("/entitlements", h.GetEntitlements)
		me.POST("/upgrade-recommendation", h.RecommendUpgrade)
	}
}

// GetEntitlements handles GET /me/entitlements
func (h *EntitlementHandler) GetEntitlements(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}

	snapshot, err := h.service.GetSnapshot(c.Request.Context(), userID)
	if err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	respondSuccess(c, snapshot)
}

// RecommendUpgradeRequest names what blocked the user. Both empty means a generic quota block.
type RecommendUpgradeRequest struct {
	Feature string `json:"feature"`
	Quota   string `json:"quota"`
}

// RecommendUpgrade handles POST /me/upgrade-recommendation
func (h *EntitlementHandler) RecommendUpgrade(c *gin.Context) {
	userID := requireAuth(c)
	if userID == uuid.Nil {
		return
	}

	var req RecommendUpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reason := usage.GenericReason()
	switch {
	case req.Feature != "":
		f, err := plan.ParseFeature(req.Feature)
		if err != nil {
			h.errorHandler.HandleError(c, apperrors.BadRequest("unknown_feature", "Unknown feature").
				WithDetails(map[string]any{"feature": req.Feature}))
			return
		}
		reason = usage.FeatureReason(f)
	case req.Quota != "":
		q, err := plan.ParseQuota(req.Quota)
		if err != nil {
			h.errorHandler.HandleError(c, apperrors.BadRequest("unknown_quota", "Unknown quota").
				WithDetails(map[string]any{"quota": req.Quota}))
			return
		}
		reason = usage.QuotaReason(q)
	}

	rec, err := h.service.RecommendUpgrade(c.Request.Context(), userID, reason)
	if err != nil {
		h.errorHandler.HandleError(c, err)
		return
	}

	respondSuccess(c, rec)
}
