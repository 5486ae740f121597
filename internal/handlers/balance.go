package handlers

//go:generate mockgen -source=balance.go -destination=balance_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// BalanceReader defines the interface that the service must implement.
type BalanceReader interface {
	GetBalance(ctx context.Context, id string) (int64, error)
}

// NewGetBalanceHandler returns an HTTP handler for fetching an account balance.
// @Summary Get balance
// @Description Returns the current balance of an account
// @Tags accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} handlers.AccountResponse
// @Failure 404 {object} handlers.ErrorResponse "Unknown account"
// @Router /accounts/{id}/balance [get]
func NewGetBalanceHandler(svc BalanceReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		balance, err := svc.GetBalance(r.Context(), id)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AccountResponse{ID: id, Balance: balance})
	}
}

// RegisterGetBalanceHandler registers routes for fetching a balance
func RegisterGetBalanceHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/accounts/{id}/balance", h)
}
