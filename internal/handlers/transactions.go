package handlers

//go:generate mockgen -source=transactions.go -destination=transactions_mock.go -package=handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// TransactionLister defines the interface that the service must implement.
type TransactionLister interface {
	Transactions(ctx context.Context) []models.TransactionRecord
}

// TransactionsResponse represents the full transaction log
// swagger:model TransactionsResponse
type TransactionsResponse struct {
	Transactions []models.TransactionRecord `json:"transactions"`
}

// NewListTransactionsHandler returns an HTTP handler for reading the transaction log.
// @Summary Transaction log
// @Description Returns every committed transfer in commit order
// @Tags transfers
// @Produce json
// @Success 200 {object} handlers.TransactionsResponse
// @Router /transactions [get]
func NewListTransactionsHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, TransactionsResponse{Transactions: svc.Transactions(r.Context())})
	}
}

// RegisterListTransactionsHandler registers routes for the transaction log
func RegisterListTransactionsHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/transactions", h)
}
