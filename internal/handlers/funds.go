package handlers

//go:generate mockgen -source=funds.go -destination=funds_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// FundsAdder defines the interface that the service must implement.
type FundsAdder interface {
	AddFunds(ctx context.Context, id string, amount int64) (models.Account, error)
}

// AddFundsRequest represents the JSON body for crediting an account
// swagger:model AddFundsRequest
type AddFundsRequest struct {
	// Amount to credit in minor units
	// required: true
	// default: 100
	Amount int64 `json:"amount"`
}

// NewAddFundsHandler returns an HTTP handler that credits an account.
// @Summary Add funds
// @Description Credits a positive amount to an existing account. Crediting is not recorded in the transaction log.
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body handlers.AddFundsRequest true "Add Funds Request"
// @Success 200 {object} handlers.AccountResponse
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount"
// @Failure 404 {object} handlers.ErrorResponse "Unknown account"
// @Failure 500 {object} handlers.ErrorResponse "Storage failure"
// @Router /accounts/{id}/funds [post]
func NewAddFundsHandler(svc FundsAdder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddFundsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, r, err)
			return
		}

		account, err := svc.AddFunds(r.Context(), chi.URLParam(r, "id"), req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toAccountResponse(account))
	}
}

// RegisterAddFundsHandler registers routes for crediting an account
func RegisterAddFundsHandler(r chi.Router, h http.HandlerFunc) {
	r.Post("/accounts/{id}/funds", h)
}
