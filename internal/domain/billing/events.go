package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/infra/events"
	"go.uber.org/zap"
)

// PlanChangedEvent is the event type published when a webhook rewrites an account.
const PlanChangedEvent = "billing.plan_changed"

// PlanChanged is published whenever a provider webhook updates an account's
// billing state. From and To may be equal for status-only updates.
type PlanChanged struct {
	events.Meta
	From   plan.ID `json:"from"`
	To     plan.ID `json:"to"`
	Status string  `json:"status,omitempty"`
}

// NewPlanChanged creates a PlanChanged event.
func NewPlanChanged(userID uuid.UUID, from, to plan.ID, status string) PlanChanged {
	return PlanChanged{
		Meta:   events.NewMeta(PlanChangedEvent, userID),
		From:   from,
		To:     to,
		Status: status,
	}
}

// Changed reports whether the account moved to a different plan.
func (e PlanChanged) Changed() bool {
	return e.From != e.To
}

// NewCacheInvalidator returns a handler that drops cached profiles on plan changes.
func NewCacheInvalidator(cache ProfileCache, logger *zap.Logger) events.Handler {
	return events.NewHandlerFunc(func(ctx context.Context, e events.Event) error {
		if err := cache.Invalidate(ctx, e.Subject()); err != nil {
			return fmt.Errorf("invalidate profile cache: %w", err)
		}
		logger.Debug("profile cache invalidated",
			zap.String("user_id", e.Subject().String()),
			zap.String("event_id", e.EventID().String()),
		)
		return nil
	}, PlanChangedEvent)
}
