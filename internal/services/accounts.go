package services

import (
	"context"
	"math"
	"strings"

	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// CreateAccount registers a new account with a zero balance.
func (s *LedgerService) CreateAccount(ctx context.Context, id string) (models.Account, error) {
	const op = "create_account"

	if strings.TrimSpace(id) == "" {
		return models.Account{}, s.fail(op, ErrInvalidIdentifier, id, 0, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; ok {
		return models.Account{}, s.fail(op, ErrDuplicateAccount, id, 0, nil)
	}

	account := models.Account{ID: id, Seq: s.nextAccountSeq()}
	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return models.Account{}, s.fail(op, ErrStorageFailure, id, 0, err)
	}

	s.accounts[id] = account
	s.ids = append(s.ids, id)

	logger.Log.Infow("account created", "account_id", id)
	return account, nil
}

// AddFunds credits amount to an existing account and returns the updated account.
func (s *LedgerService) AddFunds(ctx context.Context, id string, amount int64) (models.Account, error) {
	const op = "add_funds"

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, s.fail(op, ErrUnknownAccount, id, amount, nil)
	}
	if amount <= 0 || account.Balance > math.MaxInt64-amount {
		return models.Account{}, s.fail(op, ErrInvalidAmount, id, amount, nil)
	}

	account.Balance += amount
	if err := s.storage.SaveBalance(ctx, account); err != nil {
		return models.Account{}, s.fail(op, ErrStorageFailure, id, amount, err)
	}
	s.accounts[id] = account

	logger.Log.Infow("funds added", "account_id", id, "amount", amount, "balance", account.Balance)
	return account, nil
}

// GetBalance returns the current balance of an account.
func (s *LedgerService) GetBalance(ctx context.Context, id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return 0, &LedgerError{Op: "get_balance", AccountID: id, Kind: ErrUnknownAccount}
	}
	return account.Balance, nil
}

// ListAccountIDs returns every account identifier in creation order.
func (s *LedgerService) ListAccountIDs(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// ListAccounts returns a copy of every account in creation order.
func (s *LedgerService) ListAccounts(ctx context.Context) []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.accounts[id])
	}
	return out
}

// TotalBalance returns the sum of all balances, saturating at math.MaxInt64.
func (s *LedgerService) TotalBalance(ctx context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sumBalances()
}

// AccountSummary returns every account in creation order together with their
// total, both read under one lock.
func (s *LedgerService) AccountSummary(ctx context.Context) ([]models.Account, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.accounts[id])
	}
	return out, s.sumBalances()
}

// sumBalances adds up all balances. Callers hold mu.
func (s *LedgerService) sumBalances() int64 {
	var total int64
	for _, a := range s.accounts {
		if total > math.MaxInt64-a.Balance {
			return math.MaxInt64
		}
		total += a.Balance
	}
	return total
}
