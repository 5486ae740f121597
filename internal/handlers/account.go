package handlers

//go:generate mockgen -source=account.go -destination=account_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// AccountCreator defines the interface that the service must implement.
type AccountCreator interface {
	CreateAccount(ctx context.Context, id string) (models.Account, error)
}

// AccountLister defines the interface that the service must implement.
type AccountLister interface {
	AccountSummary(ctx context.Context) ([]models.Account, int64)
}

// CreateAccountRequest represents the JSON body for creating an account
// swagger:model CreateAccountRequest
type CreateAccountRequest struct {
	// Account identifier
	// required: true
	// default: alice
	ID string `json:"id"`
}

// AccountResponse represents a single account
// swagger:model AccountResponse
type AccountResponse struct {
	// Account identifier
	ID string `json:"id"`

	// Balance in minor units
	Balance int64 `json:"balance"`
}

// ListAccountsResponse represents every account in creation order
// swagger:model ListAccountsResponse
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`

	// Sum of all balances
	Total int64 `json:"total"`
}

func toAccountResponse(a models.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Balance: a.Balance}
}

// NewCreateAccountHandler returns an HTTP handler that opens a new account with a zero balance.
// @Summary Create account
// @Description Registers a new account. The identifier must be non-blank and unique.
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body handlers.CreateAccountRequest true "Create Account Request"
// @Success 201 {object} handlers.AccountResponse
// @Failure 400 {object} handlers.ErrorResponse "Invalid identifier"
// @Failure 409 {object} handlers.ErrorResponse "Account already exists"
// @Failure 500 {object} handlers.ErrorResponse "Storage failure"
// @Router /accounts [post]
func NewCreateAccountHandler(svc AccountCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, r, err)
			return
		}

		account, err := svc.CreateAccount(r.Context(), req.ID)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAccountResponse(account))
	}
}

// NewListAccountsHandler returns an HTTP handler listing all accounts.
// @Summary List accounts
// @Description Returns every account in creation order together with the total balance
// @Tags accounts
// @Produce json
// @Success 200 {object} handlers.ListAccountsResponse
// @Router /accounts [get]
func NewListAccountsHandler(svc AccountLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accounts, total := svc.AccountSummary(ctx)
		resp := ListAccountsResponse{
			Accounts: make([]AccountResponse, 0, len(accounts)),
			Total:    total,
		}
		for _, a := range accounts {
			resp.Accounts = append(resp.Accounts, toAccountResponse(a))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// RegisterAccountHandlers registers routes for creating and listing accounts
func RegisterAccountHandlers(r chi.Router, create, list http.HandlerFunc) {
	r.Post("/accounts", create)
	r.Get("/accounts", list)
}
