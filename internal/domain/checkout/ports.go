package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
)

// Backend is the billing backend the reconciler polls.
// Both calls must be idempotent and free of side effects on the subscription.
type Backend interface {
	// ConfirmCheckoutSession returns the plan label a provider checkout session resolved to.
	ConfirmCheckoutSession(ctx context.Context, sessionRef string) (string, error)
	// RefreshCurrentUserProfile reloads the user profile. force bypasses any cache.
	RefreshCurrentUserProfile(ctx context.Context, userID uuid.UUID, force bool) (*account.Profile, error)
}

// Recorder receives reconciliation outcomes.
type Recorder interface {
	RecordReconciliation(state string, attempts int, exhausted bool)
	SetActiveReconciliations(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordReconciliation(string, int, bool) {}
func (nopRecorder) SetActiveReconciliations(int)           {}
