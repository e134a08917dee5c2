package plan

import "errors"

// Catalog validation errors.
var (
	ErrMissingPlan         = errors.New("catalog is missing a canonical plan")
	ErrDuplicatePlan       = errors.New("catalog defines a plan twice")
	ErrUnknownPlan         = errors.New("catalog defines an unknown plan")
	ErrDuplicateOrder      = errors.New("catalog ordering index is not unique")
	ErrPriceNotMonotonic   = errors.New("plan price decreases along plan order")
	ErrQuotaNotMonotonic   = errors.New("plan quota decreases along plan order")
	ErrFeatureNotMonotonic = errors.New("plan feature is withdrawn along plan order")
	ErrUnreachableFeature  = errors.New("feature is not available on any plan")
	ErrInvalidQuota        = errors.New("quota value must be -1, 0 or positive")
	ErrInvalidAlias        = errors.New("alias points to an unknown plan")

	// ErrUnknownFeature is returned by lookups taking a feature name from outside.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrUnknownQuota is returned by lookups taking a quota name from outside.
	ErrUnknownQuota = errors.New("unknown quota")
)
