package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/videolens/server/internal/domain/account"
	"github.com/videolens/server/internal/domain/plan"
	"github.com/videolens/server/internal/domain/usage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot is everything a client needs to render a user's plan.
type Snapshot struct {
	UserID   uuid.UUID      `json:"user_id"`
	Plan     plan.ID        `json:"plan"`
	Info     plan.Info      `json:"info"`
	Limits   plan.Limits    `json:"limits"`
	Features []plan.Feature `json:"features"`
	Usage    usage.Snapshot `json:"usage"`
	// UsageDegraded is set when usage counters could not be read and zero usage is reported.
	UsageDegraded bool         `json:"usage_degraded"`
	Report        usage.Report `json:"report"`
}

// Recommendation is an upgrade suggestion for a blocked action.
type Recommendation struct {
	Current     plan.ID      `json:"current"`
	Recommended plan.ID      `json:"recommended"`
	Reason      usage.Reason `json:"reason"`
	Info        plan.Info    `json:"info"`
}

// Domain assembles plan snapshots from profiles and usage counters.
type Domain struct {
	profiles  ProfileSource
	usage     UsageSource
	resolver  *plan.Resolver
	evaluator *usage.Evaluator
	labels    *labelAuditor
	logger    *zap.Logger
}

// NewDomain creates the entitlement service. misses may be nil.
func NewDomain(
	profiles ProfileSource,
	usageSource UsageSource,
	resolver *plan.Resolver,
	evaluator *usage.Evaluator,
	misses MissRecorder,
	logger *zap.Logger,
) *Domain {
	if resolver == nil {
		resolver = plan.NewResolver(nil)
	}
	if evaluator == nil {
		evaluator = usage.NewEvaluator(resolver, usage.DefaultTriggers())
	}
	if misses == nil {
		misses = nopMissRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Domain{
		profiles:  profiles,
		usage:     usageSource,
		resolver:  resolver,
		evaluator: evaluator,
		labels:    newLabelAuditor(resolver, misses, logger),
		logger:    logger,
	}
}

// GetSnapshot loads the user's profile and usage concurrently and evaluates them.
// A usage outage degrades to zero usage; a profile outage is an error.
func (d *Domain) GetSnapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	var (
		profile  *account.Profile
		counters usage.Snapshot
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := d.profiles.RefreshCurrentUserProfile(gctx, userID, false)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		s, err := d.usage.GetUsage(gctx, userID)
		if err != nil {
			d.logger.Warn("usage counters unavailable, reporting zero usage",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			degraded = true
			return nil
		}
		counters = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	id := d.labels.normalize(profile.PlanLabel, "profile")
	if profile.CreditsRemaining != nil {
		counters.CreditsRemaining = profile.CreditsRemaining
	}
	counters = counters.Clamped()

	def := d.resolver.DefinitionOf(id)
	return &Snapshot{
		UserID:        userID,
		Plan:          id,
		Info:          def.Info,
		Limits:        def.Limits,
		Features:      def.Features.Enabled(),
		Usage:         counters,
		UsageDegraded: degraded,
		Report:        d.evaluator.Evaluate(id, counters),
	}, nil
}

// RecommendUpgrade suggests the plan that lifts a block for the user.
func (d *Domain) RecommendUpgrade(ctx context.Context, userID uuid.UUID, reason usage.Reason) (*Recommendation, error) {
	profile, err := d.profiles.RefreshCurrentUserProfile(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}

	current := d.labels.normalize(profile.PlanLabel, "profile")
	recommended := d.evaluator.RecommendedUpgrade(current, reason)
	return &Recommendation{
		Current:     current,
		Recommended: recommended,
		Reason:      reason,
		Info:        d.resolver.InfoOf(recommended),
	}, nil
}
