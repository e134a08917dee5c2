package entitlement

import "errors"

var (
	// ErrProfileUnavailable is returned when the user's profile cannot be loaded.
	ErrProfileUnavailable = errors.New("profile unavailable")
)
