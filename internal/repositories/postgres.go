package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// PostgresRepository stores the ledger in the accounts and transactions tables.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a repository over an open database handle.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func logQuery(query string, args []any, result any, err error) {
	logger.Log.Infow("query",
		"sql", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}

// Load reads every account and the full log from one repeatable-read snapshot.
func (r *PostgresRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	const accountsQuery = `
		SELECT id, balance, seq
		FROM accounts
		ORDER BY seq
	`
	const transactionsQuery = `
		SELECT id, seq, created_at, from_id, to_id, amount
		FROM transactions
		ORDER BY seq
	`

	snap := &models.LedgerSnapshot{
		Accounts:     []models.Account{},
		Transactions: []models.TransactionRecord{},
	}

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := withTx(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		err := tx.SelectContext(ctx, &snap.Accounts, accountsQuery)
		logQuery(accountsQuery, nil, len(snap.Accounts), err)
		if err != nil {
			return fmt.Errorf("select accounts: %w", err)
		}

		err = tx.SelectContext(ctx, &snap.Transactions, transactionsQuery)
		logQuery(transactionsQuery, nil, len(snap.Transactions), err)
		if err != nil {
			return fmt.Errorf("select transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range snap.Transactions {
		snap.Transactions[i].Timestamp = snap.Transactions[i].Timestamp.UTC()
	}
	return snap, nil
}

// SaveAccount inserts a new account row.
func (r *PostgresRepository) SaveAccount(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (id, seq, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	args := []any{account.ID, account.Seq, account.Balance}

	res, err := r.db.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, args, rowsAffected, err)

	if err != nil {
		return fmt.Errorf("insert account %q: %w", account.ID, err)
	}
	return nil
}

// SaveBalance overwrites the balance of an existing account.
func (r *PostgresRepository) SaveBalance(ctx context.Context, account models.Account) error {
	return updateBalance(ctx, r.db, account)
}

// SaveTransfer updates both balances and appends the record in one transaction.
func (r *PostgresRepository) SaveTransfer(ctx context.Context, from, to models.Account, record models.TransactionRecord) error {
	const query = `
		INSERT INTO transactions (id, seq, created_at, from_id, to_id, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if err := updateBalance(ctx, tx, from); err != nil {
			return err
		}
		if err := updateBalance(ctx, tx, to); err != nil {
			return err
		}

		args := []any{record.ID, record.Seq, record.Timestamp, record.From, record.To, record.Amount}
		_, err := tx.ExecContext(ctx, query, args...)
		logQuery(query, args, nil, err)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", record.ID, err)
		}
		return nil
	})
}

func updateBalance(ctx context.Context, executor sqlx.ExecerContext, account models.Account) error {
	const query = `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`
	args := []any{account.Balance, account.ID}

	res, err := executor.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if err == nil {
		rowsAffected, err = res.RowsAffected()
	}
	logQuery(query, args, rowsAffected, err)

	if err != nil {
		return fmt.Errorf("update balance of %q: %w", account.ID, err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("update balance of %q: account is not stored", account.ID)
	}
	return nil
}
