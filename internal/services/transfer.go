package services

import (
	"context"
	"math"

	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// Transfer moves amount from one account to another and appends a record to the
// transaction log. The debit, the credit and the record are persisted in a single
// storage write and only then applied in memory, so a failed transfer has no effect.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID string, amount int64) (models.TransactionRecord, error) {
	record, err := s.commitTransfer(ctx, fromID, toID, amount)
	if err != nil {
		return models.TransactionRecord{}, err
	}

	logger.Log.Infow("transfer committed",
		"transaction_id", record.ID,
		"from", record.From,
		"to", record.To,
		"amount", record.Amount,
	)
	s.publishTransaction(ctx, record)

	return record, nil
}

func (s *LedgerService) commitTransfer(ctx context.Context, fromID, toID string, amount int64) (models.TransactionRecord, error) {
	const op = "transfer"

	if amount <= 0 {
		return models.TransactionRecord{}, s.fail(op, ErrInvalidAmount, fromID, amount, nil)
	}
	if fromID == toID {
		return models.TransactionRecord{}, s.fail(op, ErrSameAccount, fromID, amount, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromID]
	if !ok {
		return models.TransactionRecord{}, s.fail(op, ErrUnknownAccount, fromID, amount, nil)
	}
	to, ok := s.accounts[toID]
	if !ok {
		return models.TransactionRecord{}, s.fail(op, ErrUnknownAccount, toID, amount, nil)
	}
	if from.Balance < amount {
		return models.TransactionRecord{}, s.fail(op, ErrInsufficientFunds, fromID, amount, nil)
	}
	if to.Balance > math.MaxInt64-amount {
		return models.TransactionRecord{}, s.fail(op, ErrInvalidAmount, toID, amount, nil)
	}

	from.Balance -= amount
	to.Balance += amount
	record := models.TransactionRecord{
		ID:        s.newID(),
		Seq:       s.nextRecordSeq(),
		Timestamp: s.now(),
		From:      fromID,
		To:        toID,
		Amount:    amount,
	}

	if err := s.storage.SaveTransfer(ctx, from, to, record); err != nil {
		return models.TransactionRecord{}, s.fail(op, ErrStorageFailure, fromID, amount, err)
	}

	s.accounts[fromID] = from
	s.accounts[toID] = to
	s.log = append(s.log, record)

	return record, nil
}

// Transactions returns a copy of the full transaction log in commit order.
func (s *LedgerService) Transactions(ctx context.Context) []models.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TransactionRecord, len(s.log))
	copy(out, s.log)
	return out
}
