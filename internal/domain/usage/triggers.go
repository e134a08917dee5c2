package usage

import (
	"fmt"

	"github.com/videolens/server/internal/domain/plan"
)

// Triggers holds the thresholds that drive upgrade prompts and alerts.
type Triggers struct {
	FreeAnalysisWarning  int64   `mapstructure:"free_analysis_warning" json:"free_analysis_warning"`
	FreeAnalysisBlock    int64   `mapstructure:"free_analysis_block" json:"free_analysis_block"`
	LowCreditWarningPct  float64 `mapstructure:"low_credit_warning_pct" json:"low_credit_warning_pct"`
	LowCreditCriticalPct float64 `mapstructure:"low_credit_critical_pct" json:"low_credit_critical_pct"`
	TrialDays            int     `mapstructure:"trial_days" json:"trial_days"`
	TrialPlan            plan.ID `mapstructure:"trial_plan" json:"trial_plan"`
}

// DefaultTriggers returns the production thresholds.
func DefaultTriggers() Triggers {
	return Triggers{
		FreeAnalysisWarning:  2,
		FreeAnalysisBlock:    3,
		LowCreditWarningPct:  20,
		LowCreditCriticalPct: 5,
		TrialDays:            7,
		TrialPlan:            plan.Pro,
	}
}

// Validate checks the thresholds are internally consistent.
func (t Triggers) Validate() error {
	if t.FreeAnalysisWarning < 0 || t.FreeAnalysisBlock <= 0 {
		return fmt.Errorf("%w: free analysis counts must be positive", ErrInvalidTriggers)
	}
	if t.FreeAnalysisWarning >= t.FreeAnalysisBlock {
		return fmt.Errorf("%w: warning count %d must be below block count %d",
			ErrInvalidTriggers, t.FreeAnalysisWarning, t.FreeAnalysisBlock)
	}
	if t.LowCreditCriticalPct <= 0 || t.LowCreditWarningPct > 100 {
		return fmt.Errorf("%w: credit percentages must be within (0, 100]", ErrInvalidTriggers)
	}
	if t.LowCreditCriticalPct >= t.LowCreditWarningPct {
		return fmt.Errorf("%w: critical %.1f%% must be below warning %.1f%%",
			ErrInvalidTriggers, t.LowCreditCriticalPct, t.LowCreditWarningPct)
	}
	if t.TrialDays < 0 {
		return fmt.Errorf("%w: trial days must not be negative", ErrInvalidTriggers)
	}
	if t.TrialDays > 0 && !t.TrialPlan.IsValid() {
		return fmt.Errorf("%w: trial plan %q is not a plan", ErrInvalidTriggers, t.TrialPlan)
	}
	return nil
}
