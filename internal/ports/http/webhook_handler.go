package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/videolens/server/internal/domain/billing"
)

// StripeSignatureHeader carries the webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

const maxWebhookBodyBytes = 65536

// WebhookService applies verified provider webhooks.
type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookOutcome, error)
}

// WebhookRecorder counts webhook deliveries.
type WebhookRecorder interface {
	RecordWebhookEvent(eventType, result string)
}

type nopWebhookRecorder struct{}

func (nopWebhookRecorder) RecordWebhookEvent(string, string) {}

// WebhookHandler receives provider webhooks.
type WebhookHandler struct {
	service      WebhookService
	recorder     WebhookRecorder
	errorHandler *ErrorHandler
}

// NewWebhookHandler creates a new webhook handler. recorder may be nil.
func NewWebhookHandler(service WebhookService, recorder WebhookRecorder) *WebhookHandler {
	if recorder == nil {
		recorder = nopWebhookRecorder{}
	}
	return &WebhookHandler{
		service:      service,
		recorder:     recorder,
		errorHandler: NewErrorHandler(),
	}
}

// RegisterRoutes registers webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook handles POST /webhooks/stripe
// Any failure answers 5xx (or 400 for a bad signature) so the provider
// redelivers; only events that applied cleanly are skipped as duplicates.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Webhook payload too large")
		return
	}

	outcome, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader(StripeSignatureHeader))
	if err != nil && outcome == nil {
		result := "error"
		if errors.Is(err, billing.ErrInvalidSignature) {
			result = "invalid_signature"
		}
		h.recorder.RecordWebhookEvent("unknown", result)
		h.errorHandler.HandleError(c, err)
		return
	}

	h.recorder.RecordWebhookEvent(outcome.EventType, string(outcome.Result))
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "webhook_failed", "Webhook event could not be applied")
		return
	}

	respondSuccess(c, gin.H{
		"received": true,
		"event_id": outcome.EventID,
		"result":   outcome.Result,
	})
}
