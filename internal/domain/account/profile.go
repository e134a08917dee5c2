package account

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the billing view of a user as reported by the backend.
// PlanLabel is the raw label and must be normalized before use.
type Profile struct {
	UserID               uuid.UUID `json:"user_id"`
	PlanLabel            string    `json:"plan"`
	CreditsRemaining     *int64    `json:"credits_remaining,omitempty"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	SubscriptionStatus   string    `json:"subscription_status,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewFreeProfile returns the profile of a user with no account record.
func NewFreeProfile(userID uuid.UUID, freeLabel string) *Profile {
	return &Profile{
		UserID:    userID,
		PlanLabel: freeLabel,
		UpdatedAt: time.Now(),
	}
}
