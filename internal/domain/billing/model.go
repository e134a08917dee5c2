package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/plan"
)

// CheckoutStatus is the lifecycle of a stored checkout session.
type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutCompleted CheckoutStatus = "completed"
	CheckoutExpired   CheckoutStatus = "expired"
)

// CheckoutSession records a provider checkout started by a user.
type CheckoutSession struct {
	// ID is the provider session reference.
	ID       string
	UserID   uuid.UUID
	Plan     plan.ID
	Baseline plan.ID
	Status   CheckoutStatus
	URL      string
	// ConfirmedPlan is set once the provider reports the session complete.
	ConfirmedPlan plan.ID
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// IsCompleted reports whether the provider has confirmed payment.
func (s *CheckoutSession) IsCompleted() bool {
	return s.Status == CheckoutCompleted
}

// Complete marks the session as paid for the given plan.
func (s *CheckoutSession) Complete(id plan.ID, at time.Time) {
	s.Status = CheckoutCompleted
	s.ConfirmedPlan = id
	s.CompletedAt = &at
}

// WebhookEvent is a stored provider event and the outcome of its last delivery.
type WebhookEvent struct {
	ID          uuid.UUID
	EventID     string
	EventType   string
	Data        string
	Processed   bool
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// NewWebhookEvent creates an unprocessed webhook event record.
func NewWebhookEvent(eventID, eventType, data string) *WebhookEvent {
	return &WebhookEvent{
		ID:        uuid.New(),
		EventID:   eventID,
		EventType: eventType,
		Data:      data,
		CreatedAt: time.Now(),
	}
}

// Provider event types applied by the billing backend.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ProviderEvent is a verified provider webhook reduced to what billing needs.
type ProviderEvent struct {
	ID                 string
	Type               string
	CheckoutSessionID  string
	CustomerID         string
	SubscriptionID     string
	SubscriptionStatus string
	// PlanLabel comes from session metadata or the price lookup key.
	PlanLabel string
	PriceID   string
	// UserID comes from session metadata. uuid.Nil when absent.
	UserID uuid.UUID
}

// CheckoutParams describes a provider checkout session to create.
type CheckoutParams struct {
	UserID     uuid.UUID
	Plan       plan.ID
	PriceID    string
	CustomerID string
}

// ProviderSession is a created provider checkout session.
type ProviderSession struct {
	ID  string
	URL string
}

// CheckoutResult is returned to the client starting a checkout.
type CheckoutResult struct {
	SessionID   string  `json:"session_id"`
	RedirectURL string  `json:"redirect_url"`
	Plan        plan.ID `json:"plan"`
	Baseline    plan.ID `json:"baseline"`
}

// WebhookResult classifies how a webhook delivery was handled.
type WebhookResult string

const (
	WebhookApplied   WebhookResult = "applied"
	WebhookDuplicate WebhookResult = "duplicate"
	WebhookIgnored   WebhookResult = "ignored"
	WebhookFailed    WebhookResult = "failed"
)

// WebhookOutcome reports a handled webhook delivery.
type WebhookOutcome struct {
	EventID   string
	EventType string
	Result    WebhookResult
}
