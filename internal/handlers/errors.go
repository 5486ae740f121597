package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/middlewares"
	"github.com/sbilibin2017/upi-ledger/internal/services"
)

// ErrorResponse is returned by every endpoint on failure
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// default: transfer: insufficient funds (account "alice") (amount 1000)
	Error string `json:"error"`

	// Error kind
	// default: InsufficientFunds
	Kind string `json:"kind"`
}

// errorKinds maps ledger error kinds to their wire name and HTTP status.
var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{services.ErrStorageFailure, "StorageFailure", http.StatusInternalServerError},
	{services.ErrInvalidIdentifier, "InvalidIdentifier", http.StatusBadRequest},
	{services.ErrInvalidAmount, "InvalidAmount", http.StatusBadRequest},
	{services.ErrSameAccount, "SameAccount", http.StatusBadRequest},
	{services.ErrUnknownAccount, "UnknownAccount", http.StatusNotFound},
	{services.ErrDuplicateAccount, "DuplicateAccount", http.StatusConflict},
	{services.ErrInsufficientFunds, "InsufficientFunds", http.StatusConflict},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

// writeLedgerError translates a ledger error into a JSON error response.
// Validation failures are logged as warnings, everything else as errors.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middlewares.RequestIDFromContext(r.Context())
	if services.IsValidationError(err) {
		logger.Log.Warnw("request rejected", "request_id", reqID, "error", err)
	} else {
		logger.Log.Errorw("request failed", "request_id", reqID, "error", err)
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeJSON(w, k.status, ErrorResponse{Error: err.Error(), Kind: k.kind})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Kind: "Internal"})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	logger.Log.Warnw("failed to decode request",
		"request_id", middlewares.RequestIDFromContext(r.Context()),
		"error", err,
	)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Kind: "InvalidRequest"})
}
