package models

import "errors"

// Business outcomes. These are deterministic given the current account state
// and are returned to the caller without retry.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrBelowMinimumWithdrawal = errors.New("below minimum withdrawal")
	ErrLevelLocked            = errors.New("vip level locked")
	ErrNotSubscribed          = errors.New("not subscribed")
	ErrNothingToClaim         = errors.New("nothing to claim")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidCurrencyField   = errors.New("invalid currency field")
	ErrInvalidLevel           = errors.New("invalid vip level")
	ErrLevelDowngrade         = errors.New("cannot subscribe below the active vip level")
	ErrInvalidTimezone        = errors.New("invalid timezone")
)

// ErrStoreUnavailable marks a transient infrastructure failure. It is the only
// retryable class; the operation may or may not have taken effect.
var ErrStoreUnavailable = errors.New("store unavailable")

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
