package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/videolens/server/internal/domain/plan"
	apperrors "github.com/videolens/server/internal/utils/errors"
)

// PlanHandler serves the plan catalog.
type PlanHandler struct {
	resolver     *plan.Resolver
	errorHandler *ErrorHandler
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(resolver *plan.Resolver) *PlanHandler {
	if resolver == nil {
		resolver = plan.NewResolver(nil)
	}
	return &PlanHandler{
		resolver:     resolver,
		errorHandler: NewErrorHandler(),
	}
}

// RegisterRoutes registers public plan routes.
func (h *PlanHandler) RegisterRoutes(r *gin.RouterGroup) {
	plans := r.Group("/plans")
	{
		plans.GET("", h.ListPlans)
		plans.GET("/compare", h.ComparePlans)
		plans.GET("/:plan", h.GetPlan)
	}
	r.GET("/features/:feature/minimum-plan", h.GetMinimumPlan)
}

// PlanResponse is a catalog entry rendered for one locale.
type PlanResponse struct {
	ID          plan.ID        `json:"id"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
	PriceCents  int64          `json:"price_cents"`
	Currency    string         `json:"currency"`
	Badge       string         `json:"badge,omitempty"`
	Order       int            `json:"order"`
	Limits      plan.Limits    `json:"limits"`
	Features    []plan.Feature `json:"features"`
	Exports     []string       `json:"export_formats,omitempty"`
}

func toPlanResponse(def plan.Definition, locale string) PlanResponse {
	return PlanResponse{
		ID:          def.ID,
		DisplayName: def.Info.DisplayName,
		Description: def.Info.Description(locale),
		PriceCents:  def.Info.PriceCents,
		Currency:    def.Info.Currency,
		Badge:       def.Info.Badge,
		Order:       def.Info.Order,
		Limits:      def.Limits,
		Features:    def.Features.Enabled(),
		Exports:     def.Info.ExportFormats,
	}
}

// ListPlans handles GET /plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	locale := c.DefaultQuery("locale", "en")

	ids := h.resolver.Plans()
	plans := make([]PlanResponse, 0, len(ids))
	for _, id := range ids {
		plans = append(plans, toPlanResponse(h.resolver.DefinitionOf(id), locale))
	}

	respondSuccess(c, gin.H{"plans": plans})
}

// GetPlan handles GET /plans/:plan
// Any label is accepted; unrecognized labels resolve to the lowest tier.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id := h.resolver.Normalize(c.Param("plan"))
	respondSuccess(c, toPlanResponse(h.resolver.DefinitionOf(id), c.DefaultQuery("locale", "en")))
}

// ComparePlansQuery is the query of a plan comparison.
type ComparePlansQuery struct {
	A string `form:"a" binding:"required"`
	B string `form:"b" binding:"required"`
}

// ComparePlans handles GET /plans/compare
func (h *PlanHandler) ComparePlans(c *gin.Context) {
	var q ComparePlansQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	a := h.resolver.Normalize(q.A)
	b := h.resolver.Normalize(q.B)
	result := h.resolver.Compare(a, b)

	higher := a
	if result < 0 {
		higher = b
	}

	respondSuccess(c, gin.H{
		"a":      a,
		"b":      b,
		"result": result,
		"higher": higher,
	})
}

// GetMinimumPlan handles GET /features/:feature/minimum-plan
func (h *PlanHandler) GetMinimumPlan(c *gin.Context) {
	feature, err := plan.ParseFeature(c.Param("feature"))
	if err != nil {
		h.errorHandler.HandleError(c, apperrors.NotFound("unknown_feature", "Unknown feature").
			WithDetails(map[string]any{"feature": c.Param("feature")}))
		return
	}

	id := h.resolver.MinimumPlanFor(feature)
	respondSuccess(c, gin.H{
		"feature": feature,
		"plan":    toPlanResponse(h.resolver.DefinitionOf(id), c.DefaultQuery("locale", "en")),
	})
}
