package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/videolens/server/internal/domain/usage"
)

// UsageHandler exposes the stateless usage policies.
type UsageHandler struct {
	evaluator *usage.Evaluator
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(evaluator *usage.Evaluator) *UsageHandler {
	if evaluator == nil {
		evaluator = usage.NewEvaluator(nil, usage.DefaultTriggers())
	}
	return &UsageHandler{evaluator: evaluator}
}

// RegisterRoutes registers public usage routes.
func (h *UsageHandler) RegisterRoutes(r *gin.RouterGroup) {
	u := r.Group("/usage")
	{
		u.GET("/credit-alert", h.GetCreditAlert)
		u.GET("/value-saved", h.GetValueSaved)
	}
}

// CreditAlertQuery is the query of a credit alert lookup.
type CreditAlertQuery struct {
	Current *int64 `form:"current" binding:"required"`
	Max     *int64 `form:"max" binding:"required"`
}

// GetCreditAlert handles GET /usage/credit-alert
func (h *UsageHandler) GetCreditAlert(c *gin.Context) {
	var q CreditAlertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	respondSuccess(c, gin.H{
		"current": *q.Current,
		"max":     *q.Max,
		"level":   h.evaluator.CreditAlertLevel(*q.Current, *q.Max),
	})
}

// ValueSavedQuery is the query of a value-saved estimate.
type ValueSavedQuery struct {
	DurationSeconds *int64 `form:"duration_seconds" binding:"required"`
}

// GetValueSaved handles GET /usage/value-saved
func (h *UsageHandler) GetValueSaved(c *gin.Context) {
	var q ValueSavedQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	respondSuccess(c, h.evaluator.EstimatedValueSaved(*q.DurationSeconds))
}
