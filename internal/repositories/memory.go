package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// MemoryRepository keeps the ledger in process memory. It satisfies the same
// contract as the durable backends and is used by tests and throwaway runs.
type MemoryRepository struct {
	mu           sync.Mutex
	accounts     []models.Account
	index        map[string]int
	transactions []models.TransactionRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{index: make(map[string]int)}
}

// Load returns a copy of the stored state.
func (r *MemoryRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &models.LedgerSnapshot{
		Accounts:     make([]models.Account, len(r.accounts)),
		Transactions: make([]models.TransactionRecord, len(r.transactions)),
	}
	copy(snap.Accounts, r.accounts)
	copy(snap.Transactions, r.transactions)
	return snap, nil
}

// SaveAccount inserts a new account.
func (r *MemoryRepository) SaveAccount(ctx context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[account.ID]; ok {
		return fmt.Errorf("account %q already stored", account.ID)
	}
	r.index[account.ID] = len(r.accounts)
	r.accounts = append(r.accounts, account)
	return nil
}

// SaveBalance overwrites the balance of a stored account.
func (r *MemoryRepository) SaveBalance(ctx context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[account.ID]
	if !ok {
		return fmt.Errorf("account %q is not stored", account.ID)
	}
	r.accounts[i].Balance = account.Balance
	return nil
}

// SaveTransfer stores both balances and appends the record.
func (r *MemoryRepository) SaveTransfer(ctx context.Context, from, to models.Account, record models.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fi, ok := r.index[from.ID]
	if !ok {
		return fmt.Errorf("account %q is not stored", from.ID)
	}
	ti, ok := r.index[to.ID]
	if !ok {
		return fmt.Errorf("account %q is not stored", to.ID)
	}
	r.accounts[fi].Balance = from.Balance
	r.accounts[ti].Balance = to.Balance
	r.transactions = append(r.transactions, record)
	return nil
}
