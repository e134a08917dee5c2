package usage

import (
	"math"

	"github.com/videolens/server/internal/domain/plan"
)

// AlertLevel classifies a remaining credit balance.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
	AlertEmpty    AlertLevel = "empty"
)

// PromptLevel classifies how strongly a free-tier user is nudged to upgrade.
type PromptLevel string

const (
	PromptNone    PromptLevel = "none"
	PromptWarning PromptLevel = "warning"
	PromptBlocked PromptLevel = "blocked"
)

// Reason explains why an upgrade is being recommended.
// The zero value is a generic quota block.
type Reason struct {
	Feature plan.Feature `json:"feature,omitempty"`
	Quota   plan.Quota   `json:"quota,omitempty"`
}

// FeatureReason is a block on a missing feature.
func FeatureReason(f plan.Feature) Reason {
	return Reason{Feature: f}
}

// QuotaReason is a block on one exhausted quota.
func QuotaReason(q plan.Quota) Reason {
	return Reason{Quota: q}
}

// GenericReason is a block on an unspecified quota.
func GenericReason() Reason {
	return Reason{}
}

// Time-saved ratios used for value messaging.
const (
	watchTimeSavedRatio = 0.75
	secondsPerPage      = 240
)

// ValueSaved estimates what a summary saved compared to watching the video.
type ValueSaved struct {
	MinutesSaved   int64 `json:"minutes_saved"`
	PageEquivalent int64 `json:"page_equivalent"`
}

// TrialOffer describes a time-limited trial the user is eligible for.
type TrialOffer struct {
	Plan plan.ID `json:"plan"`
	Days int     `json:"days"`
}

// Evaluator applies conversion triggers to plans and usage.
// It is pure and safe for concurrent use.
type Evaluator struct {
	resolver *plan.Resolver
	triggers Triggers
}

// NewEvaluator creates a new usage policy evaluator.
func NewEvaluator(resolver *plan.Resolver, triggers Triggers) *Evaluator {
	if resolver == nil {
		resolver = plan.NewResolver(nil)
	}
	return &Evaluator{
		resolver: resolver,
		triggers: triggers,
	}
}

// Triggers returns the configured thresholds.
func (e *Evaluator) Triggers() Triggers {
	return e.triggers
}

// CreditAlertLevel classifies the remaining balance against the plan pool.
func (e *Evaluator) CreditAlertLevel(current, maxCredits int64) AlertLevel {
	if maxCredits <= 0 {
		return AlertNone
	}
	if current <= 0 {
		return AlertEmpty
	}
	pct := float64(current) * 100 / float64(maxCredits)
	switch {
	case pct < e.triggers.LowCreditCriticalPct:
		return AlertCritical
	case pct < e.triggers.LowCreditWarningPct:
		return AlertWarning
	}
	return AlertNone
}

// FreeTierPromptLevel classifies lowest-tier usage of the analysis allowance.
func (e *Evaluator) FreeTierPromptLevel(id plan.ID, used int64) PromptLevel {
	if !e.resolver.IsLowest(e.resolver.Normalize(string(id))) {
		return PromptNone
	}
	used = clamp(used)
	switch {
	case used >= e.triggers.FreeAnalysisBlock:
		return PromptBlocked
	case used >= e.triggers.FreeAnalysisWarning:
		return PromptWarning
	}
	return PromptNone
}

// RecommendedUpgrade returns the plan that lifts the block described by reason.
// With no qualifying plan above current, the top tier is returned.
func (e *Evaluator) RecommendedUpgrade(current plan.ID, reason Reason) plan.ID {
	current = e.resolver.Normalize(string(current))

	switch {
	case reason.Feature != "":
		for _, candidate := range e.resolver.Above(current) {
			if e.resolver.FeaturesOf(candidate).Has(reason.Feature) {
				return candidate
			}
		}
		return e.resolver.Highest()

	case reason.Quota != "":
		have := e.resolver.LimitsOf(current).Get(reason.Quota)
		for _, candidate := range e.resolver.Above(current) {
			if plan.QuotaLess(have, e.resolver.LimitsOf(candidate).Get(reason.Quota)) {
				return candidate
			}
		}
		return e.resolver.Highest()
	}

	return e.resolver.Next(current)
}

// EstimatedValueSaved converts a video duration into time and reading saved.
func (e *Evaluator) EstimatedValueSaved(durationSeconds int64) ValueSaved {
	if durationSeconds <= 0 {
		return ValueSaved{}
	}
	minutes := int64(math.Round(float64(durationSeconds) * watchTimeSavedRatio / 60))
	pages := int64(math.Round(float64(durationSeconds) / secondsPerPage))
	if pages < 1 {
		pages = 1
	}
	return ValueSaved{MinutesSaved: minutes, PageEquivalent: pages}
}

// TrialOffer returns the trial available to a user on the given plan, if any.
func (e *Evaluator) TrialOffer(id plan.ID) *TrialOffer {
	if e.triggers.TrialDays <= 0 || !e.resolver.IsLowest(e.resolver.Normalize(string(id))) {
		return nil
	}
	return &TrialOffer{Plan: e.triggers.TrialPlan, Days: e.triggers.TrialDays}
}

// ExhaustedQuota is a quota whose counter reached its finite limit.
type ExhaustedQuota struct {
	Quota   plan.Quota `json:"quota"`
	Used    int64      `json:"used"`
	Limit   int64      `json:"limit"`
	Upgrade plan.ID    `json:"upgrade"`
}

// Report is the combined usage evaluation for one user.
type Report struct {
	Plan             plan.ID          `json:"plan"`
	CreditsRemaining int64            `json:"credits_remaining"`
	CreditAlert      AlertLevel       `json:"credit_alert"`
	FreeTierPrompt   PromptLevel      `json:"free_tier_prompt"`
	Exhausted        []ExhaustedQuota `json:"exhausted"`
	Upgrade          *plan.ID         `json:"upgrade,omitempty"`
	Trial            *TrialOffer      `json:"trial,omitempty"`
}

// Evaluate combines every policy for a plan and usage snapshot.
func (e *Evaluator) Evaluate(id plan.ID, snapshot Snapshot) Report {
	id = e.resolver.Normalize(string(id))
	snapshot = snapshot.Clamped()
	limits := e.resolver.LimitsOf(id)

	pool := limits.Get(plan.QuotaMonthlyCredits)
	remaining := snapshot.RemainingCredits(pool)

	report := Report{
		Plan:             id,
		CreditsRemaining: remaining,
		CreditAlert:      e.CreditAlertLevel(remaining, pool),
		FreeTierPrompt:   e.FreeTierPromptLevel(id, snapshot.AnalysesThisPeriod),
		Exhausted:        []ExhaustedQuota{},
		Trial:            e.TrialOffer(id),
	}

	for _, q := range plan.AllQuotas {
		used, tracked := snapshot.Used(q)
		limit := limits.Get(q)
		if !tracked || limit <= 0 || used < limit {
			continue
		}
		report.Exhausted = append(report.Exhausted, ExhaustedQuota{
			Quota:   q,
			Used:    used,
			Limit:   limit,
			Upgrade: e.RecommendedUpgrade(id, QuotaReason(q)),
		})
	}

	if len(report.Exhausted) > 0 || report.FreeTierPrompt == PromptBlocked || report.CreditAlert == AlertEmpty {
		upgrade := e.RecommendedUpgrade(id, GenericReason())
		report.Upgrade = &upgrade
	}
	return report
}
