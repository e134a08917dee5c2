package entitlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/usage"
)

// ProfileSource loads billing profiles.
type ProfileSource interface {
	RefreshCurrentUserProfile(ctx context.Context, userID uuid.UUID, force bool) (*account.Profile, error)
}

// UsageSource reads the usage counters maintained elsewhere.
type UsageSource interface {
	GetUsage(ctx context.Context, userID uuid.UUID) (usage.Snapshot, error)
}

// MissRecorder counts plan labels that did not normalize.
type MissRecorder interface {
	RecordNormalizationMiss(source string)
}

type nopMissRecorder struct{}

func (nopMissRecorder) RecordNormalizationMiss(string) {}
