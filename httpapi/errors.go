package httpapi

import (
	"errors"
	"net/http"

	"rewardledger/models"

	log "github.com/sirupsen/logrus"
)

// statusFor maps the engine's error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrLevelLocked),
		errors.Is(err, models.ErrLevelDowngrade),
		errors.Is(err, models.ErrNotSubscribed),
		errors.Is(err, models.ErrNothingToClaim):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrBelowMinimumWithdrawal),
		errors.Is(err, models.ErrInvalidCurrencyField),
		errors.Is(err, models.ErrInvalidLevel),
		errors.Is(err, models.ErrInvalidTimezone):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// codeFor names the error class in the response body
func codeFor(err error) string {
	for _, c := range []struct {
		target error
		code   string
	}{
		{models.ErrStoreUnavailable, "store_unavailable"},
		{models.ErrAccountNotFound, "account_not_found"},
		{models.ErrInsufficientFunds, "insufficient_funds"},
		{models.ErrLevelLocked, "level_locked"},
		{models.ErrLevelDowngrade, "level_downgrade"},
		{models.ErrNotSubscribed, "not_subscribed"},
		{models.ErrNothingToClaim, "nothing_to_claim"},
		{models.ErrInvalidAmount, "invalid_amount"},
		{models.ErrBelowMinimumWithdrawal, "below_minimum_withdrawal"},
		{models.ErrInvalidCurrencyField, "invalid_currency_field"},
		{models.ErrInvalidLevel, "invalid_level"},
		{models.ErrInvalidTimezone, "invalid_timezone"},
	} {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return "internal"
}

// writeEngineError renders an engine error. Internal errors are logged and
// never echoed to the client.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: codeFor(err)})
}
