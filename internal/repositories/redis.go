package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

// RedisRepository stores the ledger in three keys under a common prefix:
//
//	<prefix>:accounts      hash, account id -> balance
//	<prefix>:account_ids   list of account ids in creation order
//	<prefix>:transactions  list of JSON-encoded transaction records
//
// Every write runs as a MULTI/EXEC transaction guarded by WATCH on the accounts hash.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a repository using keys under prefix.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "ledger"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) accountsKey() string     { return r.prefix + ":accounts" }
func (r *RedisRepository) accountIDsKey() string   { return r.prefix + ":account_ids" }
func (r *RedisRepository) transactionsKey() string { return r.prefix + ":transactions" }

// Load reads all three keys inside one MULTI/EXEC block.
func (r *RedisRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	var (
		ids      *redis.StringSliceCmd
		balances *redis.MapStringStringCmd
		records  *redis.StringSliceCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ids = pipe.LRange(ctx, r.accountIDsKey(), 0, -1)
		balances = pipe.HGetAll(ctx, r.accountsKey())
		records = pipe.LRange(ctx, r.transactionsKey(), 0, -1)
		return nil
	})

	logger.Log.Infow("redis load",
		"prefix", r.prefix,
		"accounts", len(ids.Val()),
		"transactions", len(records.Val()),
		"error", err,
	)
	if err != nil {
		return nil, fmt.Errorf("read ledger keys: %w", err)
	}

	snap := &models.LedgerSnapshot{
		Accounts:     make([]models.Account, 0, len(ids.Val())),
		Transactions: make([]models.TransactionRecord, 0, len(records.Val())),
	}

	bal := balances.Val()
	if len(bal) != len(ids.Val()) {
		return nil, fmt.Errorf("%s has %d entries, %s has %d", r.accountsKey(), len(bal), r.accountIDsKey(), len(ids.Val()))
	}
	for i, id := range ids.Val() {
		raw, ok := bal[id]
		if !ok {
			return nil, fmt.Errorf("account %q has no balance", id)
		}
		balance, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance of %q: %w", id, err)
		}
		snap.Accounts = append(snap.Accounts, models.Account{ID: id, Balance: balance, Seq: int64(i) + 1})
	}

	for i, raw := range records.Val() {
		var record models.TransactionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", i+1, err)
		}
		snap.Transactions = append(snap.Transactions, record)
	}
	return snap, nil
}

// SaveAccount adds the account to the hash and the creation-order list.
func (r *RedisRepository) SaveAccount(ctx context.Context, account models.Account) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, r.accountsKey(), account.ID).Result()
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("account %q already stored", account.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.accountsKey(), account.ID, account.Balance)
			pipe.RPush(ctx, r.accountIDsKey(), account.ID)
			return nil
		})
		return err
	}, r.accountsKey())

	logger.Log.Infow("redis write",
		"key", r.accountsKey(),
		"op", "insert",
		"args", []any{account.ID, account.Balance},
		"error", err,
	)
	return err
}

// SaveBalance overwrites the balance field of a stored account.
func (r *RedisRepository) SaveBalance(ctx context.Context, account models.Account) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := r.requireAccounts(ctx, tx, account.ID); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.accountsKey(), account.ID, account.Balance)
			return nil
		})
		return err
	}, r.accountsKey())

	logger.Log.Infow("redis write",
		"key", r.accountsKey(),
		"op", "update",
		"args", []any{account.ID, account.Balance},
		"error", err,
	)
	return err
}

// SaveTransfer writes both balances and appends the record in one MULTI/EXEC.
func (r *RedisRepository) SaveTransfer(ctx context.Context, from, to models.Account, record models.TransactionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := r.requireAccounts(ctx, tx, from.ID, to.ID); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.accountsKey(), from.ID, from.Balance, to.ID, to.Balance)
			pipe.RPush(ctx, r.transactionsKey(), data)
			return nil
		})
		return err
	}, r.accountsKey(), r.transactionsKey())

	logger.Log.Infow("redis write",
		"key", r.transactionsKey(),
		"op", "transfer",
		"args", []any{record.ID, from.ID, to.ID, record.Amount},
		"error", err,
	)
	return err
}

func (r *RedisRepository) requireAccounts(ctx context.Context, tx *redis.Tx, ids ...string) error {
	for _, id := range ids {
		exists, err := tx.HExists(ctx, r.accountsKey(), id).Result()
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("account %q is not stored", id)
		}
	}
	return nil
}
