package gateway

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"trustmart/native/common"
	"trustmart/native/escrow"
	"trustmart/native/ledger"
	"trustmart/native/marketplace"
	"trustmart/storage"
)

// apiError is the JSON error envelope returned for every failed request.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps domain errors onto HTTP status codes and stable error
// codes. A missing ledger hold is an internal invariant breach and is never
// surfaced to the client verbatim.
func classify(err error) (int, apiError) {
	switch {
	case errors.Is(err, ledger.ErrHoldNotFound):
		return http.StatusInternalServerError, apiError{Code: "internal", Message: "internal error"}
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable, apiError{Code: "module_paused", Message: err.Error()}
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, apiError{Code: "invalid_amount", Message: err.Error()}
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict, apiError{Code: "insufficient_funds", Message: err.Error()}
	case errors.Is(err, escrow.ErrInvalidTransition):
		return http.StatusConflict, apiError{Code: "invalid_transition", Message: err.Error()}
	case errors.Is(err, escrow.ErrUnauthorized):
		return http.StatusForbidden, apiError{Code: "unauthorized", Message: err.Error()}
	case errors.Is(err, marketplace.ErrProductLocked):
		return http.StatusConflict, apiError{Code: "product_locked", Message: err.Error()}
	case errors.Is(err, marketplace.ErrProductUnavailable):
		return http.StatusConflict, apiError{Code: "product_unavailable", Message: err.Error()}
	case errors.Is(err, storage.ErrDuplicatePhone):
		return http.StatusConflict, apiError{Code: "duplicate_phone", Message: err.Error()}
	case errors.Is(err, marketplace.ErrNotFound),
		errors.Is(err, escrow.ErrOrderNotFound),
		errors.Is(err, escrow.ErrProductNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, apiError{Code: "not_found", Message: "resource not found"}
	default:
		return http.StatusInternalServerError, apiError{Code: "internal", Message: "internal error"}
	}
}
