package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/domain/usage"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockProfileSource struct {
	mock.Mock
}

func (m *MockProfileSource) RefreshCurrentUserProfile(ctx context.Context, userID uuid.UUID, force bool) (*account.Profile, error) {
	args := m.Called(ctx, userID, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Profile), args.Error(1)
}

type MockUsageSource struct {
	mock.Mock
}

func (m *MockUsageSource) GetUsage(ctx context.Context, userID uuid.UUID) (usage.Snapshot, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(usage.Snapshot), args.Error(1)
}

type countingMisses struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingMisses) RecordNormalizationMiss(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[source]++
}

func TestDomain_GetSnapshot(t *testing.T) {
	userID := uuid.New()

	t.Run("combines profile and usage", func(t *testing.T) {
		profiles := new(MockProfileSource)
		counters := new(MockUsageSource)
		profiles.On("RefreshCurrentUserProfile", mock.Anything, userID, false).
			Return(&account.Profile{UserID: userID, PlanLabel: "starter_yearly", CreditsRemaining: usage.Credits(10)}, nil)
		counters.On("GetUsage", mock.Anything, userID).
			Return(usage.Snapshot{AnalysesThisPeriod: 60, ChatToday: 4}, nil)

		d := NewDomain(profiles, counters, nil, nil, nil, zap.NewNop())
		snap, err := d.GetSnapshot(context.Background(), userID)
		require.NoError(t, err)

		assert.Equal(t, plan.Starter, snap.Plan)
		assert.Equal(t, int64(60), snap.Limits.Get(plan.QuotaMonthlyAnalyses))
		assert.Contains(t, snap.Features, plan.FeatureWebSearchChat)
		assert.NotContains(t, snap.Features, plan.FeatureAPIAccess)
		assert.False(t, snap.UsageDegraded)

		// 10 of 300 credits is under 5%.
		assert.Equal(t, usage.AlertCritical, snap.Report.CreditAlert)
		require.Len(t, snap.Report.Exhausted, 1)
		assert.Equal(t, plan.QuotaMonthlyAnalyses, snap.Report.Exhausted[0].Quota)
		require.NotNil(t, snap.Report.Upgrade)
		assert.Equal(t, plan.Pro, *snap.Report.Upgrade)
	})

	t.Run("usage outage degrades to zero usage", func(t *testing.T) {
		profiles := new(MockProfileSource)
		counters := new(MockUsageSource)
		profiles.On("RefreshCurrentUserProfile", mock.Anything, userID, false).
			Return(&account.Profile{UserID: userID, PlanLabel: "free"}, nil)
		counters.On("GetUsage", mock.Anything, userID).
			Return(usage.Snapshot{}, errors.New("redis: connection refused"))

		d := NewDomain(profiles, counters, nil, nil, nil, nil)
		snap, err := d.GetSnapshot(context.Background(), userID)
		require.NoError(t, err)

		assert.True(t, snap.UsageDegraded)
		assert.Equal(t, int64(0), snap.Usage.AnalysesThisPeriod)
		assert.Equal(t, usage.AlertNone, snap.Report.CreditAlert)
		assert.Equal(t, usage.PromptNone, snap.Report.FreeTierPrompt)
		require.NotNil(t, snap.Report.Trial)
		assert.Equal(t, plan.Pro, snap.Report.Trial.Plan)
	})

	t.Run("profile outage is an error", func(t *testing.T) {
		profiles := new(MockProfileSource)
		counters := new(MockUsageSource)
		profiles.On("RefreshCurrentUserProfile", mock.Anything, userID, false).
			Return(nil, errors.New("database down"))
		counters.On("GetUsage", mock.Anything, userID).Return(usage.Snapshot{}, nil)

		d := NewDomain(profiles, counters, nil, nil, nil, nil)
		_, err := d.GetSnapshot(context.Background(), userID)
		assert.ErrorIs(t, err, ErrProfileUnavailable)
	})

	t.Run("unknown label is logged once and counted every time", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		misses := &countingMisses{}

		profiles := new(MockProfileSource)
		counters := new(MockUsageSource)
		profiles.On("RefreshCurrentUserProfile", mock.Anything, userID, false).
			Return(&account.Profile{UserID: userID, PlanLabel: "platinum"}, nil)
		counters.On("GetUsage", mock.Anything, userID).Return(usage.Snapshot{}, nil)

		d := NewDomain(profiles, counters, nil, nil, misses, zap.New(core))
		for i := 0; i < 3; i++ {
			snap, err := d.GetSnapshot(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, plan.Free, snap.Plan)
		}

		assert.Equal(t, 1, logs.FilterMessage("unknown plan label, treating as lowest tier").Len())
		assert.Equal(t, 3, misses.counts["profile"])
	})
}

func TestDomain_RecommendUpgrade(t *testing.T) {
	userID := uuid.New()
	profiles := new(MockProfileSource)
	profiles.On("RefreshCurrentUserProfile", mock.Anything, userID, false).
		Return(&account.Profile{UserID: userID, PlanLabel: "student"}, nil)

	d := NewDomain(profiles, new(MockUsageSource), nil, nil, nil, nil)

	tests := []struct {
		name   string
		reason usage.Reason
		want   plan.ID
	}{
		{"feature", usage.FeatureReason(plan.FeatureAPIAccess), plan.Pro},
		{"quota", usage.QuotaReason(plan.QuotaWebSearchesPerMonth), plan.Starter},
		{"generic", usage.GenericReason(), plan.Starter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := d.RecommendUpgrade(context.Background(), userID, tt.reason)
			require.NoError(t, err)
			assert.Equal(t, plan.Student, rec.Current)
			assert.Equal(t, tt.want, rec.Recommended)
			assert.Equal(t, tt.reason, rec.Reason)
		})
	}
}
