package services

//go:generate mockgen -source=ledger.go -destination=ledger_mock.go -package=services

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
	"github.com/segmentio/kafka-go"
)

// LedgerReader loads the persisted ledger state.
type LedgerReader interface {
	Load(ctx context.Context) (*models.LedgerSnapshot, error) // Returns all accounts and the full transaction log
}

// LedgerWriter durably persists ledger mutations. Each call must be atomic: either
// everything it was given is persisted or nothing is.
type LedgerWriter interface {
	SaveAccount(ctx context.Context, account models.Account) error                                       // Inserts a new account
	SaveBalance(ctx context.Context, account models.Account) error                                       // Persists a credited balance
	SaveTransfer(ctx context.Context, from, to models.Account, record models.TransactionRecord) error // Persists both balances and the log record
}

// LedgerStorage is a storage backend for the ledger.
type LedgerStorage interface {
	LedgerReader
	LedgerWriter
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// LedgerService is the account store and transfer engine. It keeps the ledger in
// memory, guarded by a single RWMutex, and writes every mutation through to the
// storage backend before applying it in memory.
type LedgerService struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	ids      []string
	log      []models.TransactionRecord

	storage     LedgerStorage
	kafkaWriter KafkaWriter

	now   func() time.Time
	newID func() string
}

// NewLedgerService loads the persisted state from storage and returns a ready service.
// kafkaWriter may be nil, in which case committed transfers are not published.
func NewLedgerService(ctx context.Context, storage LedgerStorage, kafkaWriter KafkaWriter) (*LedgerService, error) {
	s := &LedgerService{
		accounts:    make(map[string]models.Account),
		storage:     storage,
		kafkaWriter: kafkaWriter,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}

	snap, err := storage.Load(ctx)
	if err != nil {
		logger.Log.Errorw("failed to load ledger", "error", err)
		return nil, &LedgerError{Op: "load", Kind: ErrStorageFailure, Cause: err}
	}
	if err := s.restore(snap); err != nil {
		logger.Log.Errorw("persisted ledger is inconsistent", "error", err)
		return nil, &LedgerError{Op: "load", Kind: ErrStorageFailure, Cause: err}
	}

	logger.Log.Infow("ledger loaded",
		"accounts", len(s.ids),
		"transactions", len(s.log),
	)
	return s, nil
}

// restore replaces the in-memory state with snap after checking the ledger invariants.
func (s *LedgerService) restore(snap *models.LedgerSnapshot) error {
	if snap == nil {
		snap = &models.LedgerSnapshot{}
	}

	accounts := slices.Clone(snap.Accounts)
	slices.SortStableFunc(accounts, func(a, b models.Account) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	byID := make(map[string]models.Account, len(accounts))
	ids := make([]string, 0, len(accounts))
	var lastSeq int64
	for _, a := range accounts {
		if a.Seq <= lastSeq {
			return fmt.Errorf("account %q has duplicate or invalid seq %d", a.ID, a.Seq)
		}
		lastSeq = a.Seq
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("account with empty id at seq %d", a.Seq)
		}
		if _, ok := byID[a.ID]; ok {
			return fmt.Errorf("duplicate account %q", a.ID)
		}
		if a.Balance < 0 {
			return fmt.Errorf("account %q has negative balance %d", a.ID, a.Balance)
		}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	records := slices.Clone(snap.Transactions)
	slices.SortStableFunc(records, func(a, b models.TransactionRecord) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	var lastRecordSeq int64
	for _, r := range records {
		if r.Seq <= lastRecordSeq {
			return fmt.Errorf("transaction log has duplicate or invalid seq %d", r.Seq)
		}
		lastRecordSeq = r.Seq
		if _, ok := byID[r.From]; !ok {
			return fmt.Errorf("transaction %d references unknown account %q", r.Seq, r.From)
		}
		if _, ok := byID[r.To]; !ok {
			return fmt.Errorf("transaction %d references unknown account %q", r.Seq, r.To)
		}
		if r.From == r.To || r.Amount <= 0 {
			return fmt.Errorf("transaction %d is malformed", r.Seq)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = byID
	s.ids = ids
	s.log = records
	return nil
}

// nextAccountSeq returns the Seq for the next created account. Callers hold mu.
func (s *LedgerService) nextAccountSeq() int64 {
	if len(s.ids) == 0 {
		return 1
	}
	return s.accounts[s.ids[len(s.ids)-1]].Seq + 1
}

// nextRecordSeq returns the Seq for the next log record. Callers hold mu.
func (s *LedgerService) nextRecordSeq() int64 {
	if len(s.log) == 0 {
		return 1
	}
	return s.log[len(s.log)-1].Seq + 1
}

// fail builds a LedgerError and logs it at a level matching its kind.
func (s *LedgerService) fail(op string, kind error, accountID string, amount int64, cause error) error {
	err := &LedgerError{Op: op, AccountID: accountID, Amount: amount, Kind: kind, Cause: cause}
	if cause != nil {
		logger.Log.Errorw("ledger operation failed", "op", op, "account_id", accountID, "amount", amount, "error", err)
	} else {
		logger.Log.Warnw("ledger operation rejected", "op", op, "account_id", accountID, "amount", amount, "reason", kind.Error())
	}
	return err
}

// publishTransaction publishes a committed transfer to Kafka.
func (s *LedgerService) publishTransaction(ctx context.Context, record models.TransactionRecord) {
	if s.kafkaWriter == nil {
		logger.Log.Debugw("Kafka writer not configured, skipping publishing", "transaction_id", record.ID)
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		logger.Log.Errorw("Failed to marshal transaction for Kafka", "transaction_id", record.ID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(record.ID),
		Value: data,
		Time:  record.Timestamp,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish transaction to Kafka", "transaction_id", record.ID, "error", err)
	} else {
		logger.Log.Infow("Transaction published to Kafka", "transaction_id", record.ID, "amount", record.Amount)
	}
}
