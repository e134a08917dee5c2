package billing

import "errors"

var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")

	// Checkout errors
	ErrCheckoutSessionNotFound = errors.New("checkout session not found")
	ErrMissingSessionRef       = errors.New("checkout session reference is required")
	ErrPlanNotPurchasable      = errors.New("plan cannot be purchased")
	ErrNotAnUpgrade            = errors.New("plan is not above the current plan")
	ErrPriceNotConfigured      = errors.New("no price configured for plan")

	// Provider errors
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrInvalidSignature    = errors.New("invalid webhook signature")

	// Cache errors
	ErrCacheMiss = errors.New("cache miss")
)
