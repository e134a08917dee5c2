package usage

import "errors"

var (
	// ErrInvalidTriggers is returned when conversion thresholds contradict each other.
	ErrInvalidTriggers = errors.New("invalid conversion triggers")
)
