package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/infra/events"
)

// Repository defines billing data access.
// It is declared here and implemented in the persistence layer.
type Repository interface {
	// Account operations
	GetAccount(ctx context.Context, userID uuid.UUID) (*account.Profile, error)
	GetAccountByCustomer(ctx context.Context, customerID string) (*account.Profile, error)
	SaveAccount(ctx context.Context, profile *account.Profile) error

	// Checkout session operations
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	UpdateCheckoutSession(ctx context.Context, session *CheckoutSession) error

	// Webhook event operations
	// WebhookEventApplied reports whether the event was processed without error.
	WebhookEventApplied(ctx context.Context, eventID string) (bool, error)
	// SaveWebhookEvent stores the event, clearing the outcome of an earlier failed delivery.
	SaveWebhookEvent(ctx context.Context, event *WebhookEvent) error
	MarkWebhookEventProcessed(ctx context.Context, eventID string, err error) error
}

// ProfileCache caches profiles between forced refreshes.
// Get returns ErrCacheMiss when nothing is cached.
type ProfileCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*account.Profile, error)
	Set(ctx context.Context, profile *account.Profile) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// PaymentProvider is the hosted checkout provider.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error)
	// ParseWebhook verifies the signature and decodes the event.
	ParseWebhook(payload []byte, signature string) (*ProviderEvent, error)
}

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) int
}
