package checkout

import "errors"

// Domain errors for checkout reconciliation.
var (
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrReconciliationInFlight = errors.New("reconciliation already in progress")
	ErrAlreadyStarted         = errors.New("reconciliation already started")
	ErrNotRetryable           = errors.New("reconciliation can only be retried after an error or once its attempts are exhausted")
	ErrReconcilerClosed       = errors.New("reconciler is closed")
	ErrReconciliationNotFound = errors.New("reconciliation not found")
	ErrManagerStopped         = errors.New("reconciliation manager is stopped")
)
