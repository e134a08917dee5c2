package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/billing"
	"github.com/videolens/server/internal/domain/plan"
)

// AccountEntity is the GORM model for accounts table.
type AccountEntity struct {
	UserID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlanLabel            string    `gorm:"not null"`
	CreditsRemaining     *int64
	StripeCustomerID     string `gorm:"index"`
	StripeSubscriptionID string
	SubscriptionStatus   string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the database table name.
func (AccountEntity) TableName() string {
	return "accounts"
}

// ToDomain converts the entity to a profile. The plan label is returned raw.
func (e *AccountEntity) ToDomain() *account.Profile {
	return &account.Profile{
		UserID:               e.UserID,
		PlanLabel:            e.PlanLabel,
		CreditsRemaining:     e.CreditsRemaining,
		StripeCustomerID:     e.StripeCustomerID,
		StripeSubscriptionID: e.StripeSubscriptionID,
		SubscriptionStatus:   e.SubscriptionStatus,
		UpdatedAt:            e.UpdatedAt,
	}
}

// FromDomainAccount converts a profile to an entity.
func FromDomainAccount(p *account.Profile) *AccountEntity {
	return &AccountEntity{
		UserID:               p.UserID,
		PlanLabel:            p.PlanLabel,
		CreditsRemaining:     p.CreditsRemaining,
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		SubscriptionStatus:   p.SubscriptionStatus,
		UpdatedAt:            p.UpdatedAt,
	}
}

// CheckoutSessionEntity is the GORM model for checkout_sessions table.
type CheckoutSessionEntity struct {
	ID            string    `gorm:"primaryKey"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
	Plan          string    `gorm:"not null"`
	Baseline      string    `gorm:"not null"`
	Status        string    `gorm:"not null;index"`
	URL           string
	ConfirmedPlan string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// TableName returns the database table name.
func (CheckoutSessionEntity) TableName() string {
	return "checkout_sessions"
}

// ToDomain converts the entity to a domain CheckoutSession.
func (e *CheckoutSessionEntity) ToDomain() *billing.CheckoutSession {
	return &billing.CheckoutSession{
		ID:            e.ID,
		UserID:        e.UserID,
		Plan:          plan.ID(e.Plan),
		Baseline:      plan.ID(e.Baseline),
		Status:        billing.CheckoutStatus(e.Status),
		URL:           e.URL,
		ConfirmedPlan: plan.ID(e.ConfirmedPlan),
		CreatedAt:     e.CreatedAt,
		CompletedAt:   e.CompletedAt,
	}
}

// FromDomainCheckoutSession converts a domain CheckoutSession to an entity.
func FromDomainCheckoutSession(s *billing.CheckoutSession) *CheckoutSessionEntity {
	return &CheckoutSessionEntity{
		ID:            s.ID,
		UserID:        s.UserID,
		Plan:          string(s.Plan),
		Baseline:      string(s.Baseline),
		Status:        string(s.Status),
		URL:           s.URL,
		ConfirmedPlan: string(s.ConfirmedPlan),
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
	}
}

// WebhookEventEntity is the GORM model for webhook_events table.
type WebhookEventEntity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	EventType   string    `gorm:"not null"`
	Data        string    `gorm:"type:jsonb"`
	Processed   bool
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEventEntity) TableName() string {
	return "webhook_events"
}

// ToDomain converts the entity to a domain WebhookEvent.
func (e *WebhookEventEntity) ToDomain() *billing.WebhookEvent {
	return &billing.WebhookEvent{
		ID:          e.ID,
		EventID:     e.EventID,
		EventType:   e.EventType,
		Data:        e.Data,
		Processed:   e.Processed,
		ProcessedAt: e.ProcessedAt,
		Error:       e.Error,
		CreatedAt:   e.CreatedAt,
	}
}

// FromDomainWebhookEvent converts a domain WebhookEvent to an entity.
func FromDomainWebhookEvent(e *billing.WebhookEvent) *WebhookEventEntity {
	return &WebhookEventEntity{
		ID:          e.ID,
		EventID:     e.EventID,
		EventType:   e.EventType,
		Data:        e.Data,
		Processed:   e.Processed,
		ProcessedAt: e.ProcessedAt,
		Error:       e.Error,
		CreatedAt:   e.CreatedAt,
	}
}
