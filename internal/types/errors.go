package types

import "errors"

// Error taxonomy for the decision loop. Callers dispatch on these with
// errors.As; everything else is treated as a system fault and counted toward
// the circuit breaker's error window.

// ValidationError rejects an action outright (missing stop-loss, stale data,
// wide spread, duplicate position, daily-loss breach). Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// TransientNetworkError marks a failure worth retrying with bounded backoff
// for entries and unbounded for closes.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	if e.Err == nil {
		return "transient network error: " + e.Op
	}
	return "transient network error: " + e.Op + ": " + e.Err.Error()
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// DataIntegrityError aborts a computation (invalid quote, insufficient history
// for ATR or correlation). The caller falls back to a documented default or
// declines the action.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string { return "data integrity: " + e.Reason }

// ErrCircuitTripped blocks new entries while the breaker is open. It is state,
// not a fault: it never counts toward the error window.
var ErrCircuitTripped = errors.New("circuit breaker tripped")

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsTransient(err error) bool {
	var te *TransientNetworkError
	return errors.As(err, &te)
}

func IsDataIntegrity(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}
