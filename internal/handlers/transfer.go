package handlers

//go:generate mockgen -source=transfer.go -destination=transfer_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// Transferer defines the interface that the service must implement.
type Transferer interface {
	Transfer(ctx context.Context, fromID, toID string, amount int64) (models.TransactionRecord, error)
}

// TransferRequest represents the JSON body for a transfer
// swagger:model TransferRequest
type TransferRequest struct {
	// Sender account
	// required: true
	// default: alice
	From string `json:"from"`

	// Receiver account
	// required: true
	// default: bob
	To string `json:"to"`

	// Amount in minor units
	// required: true
	// default: 40
	Amount int64 `json:"amount"`
}

// NewTransferHandler returns an HTTP handler that moves funds between two accounts.
// @Summary Transfer funds
// @Description Atomically debits the sender, credits the receiver and appends a record to the transaction log
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body handlers.TransferRequest true "Transfer Request"
// @Success 201 {object} models.TransactionRecord
// @Failure 400 {object} handlers.ErrorResponse "Invalid amount or same account"
// @Failure 404 {object} handlers.ErrorResponse "Unknown account"
// @Failure 409 {object} handlers.ErrorResponse "Insufficient funds"
// @Failure 500 {object} handlers.ErrorResponse "Storage failure"
// @Router /transfers [post]
func NewTransferHandler(svc Transferer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, r, err)
			return
		}

		record, err := svc.Transfer(r.Context(), req.From, req.To, req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, record)
	}
}

// RegisterTransferHandler registers routes for transfers
func RegisterTransferHandler(r chi.Router, h http.HandlerFunc) {
	r.Post("/transfers", h)
}
