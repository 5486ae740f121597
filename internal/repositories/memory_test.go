package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/sbilibin2017/upi-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.SaveAccount(ctx, models.Account{ID: "alice", Seq: 1}))
	require.NoError(t, repo.SaveAccount(ctx, models.Account{ID: "bob", Seq: 2}))
	assert.ErrorContains(t, repo.SaveAccount(ctx, models.Account{ID: "bob", Seq: 3}), "already stored")

	require.NoError(t, repo.SaveBalance(ctx, models.Account{ID: "alice", Balance: 10, Seq: 1}))
	assert.ErrorContains(t, repo.SaveBalance(ctx, models.Account{ID: "carol"}), "not stored")

	record := models.TransactionRecord{ID: "tx-1", Seq: 1, Timestamp: time.Now().UTC(), From: "alice", To: "bob", Amount: 4}
	require.NoError(t, repo.SaveTransfer(ctx,
		models.Account{ID: "alice", Balance: 6, Seq: 1},
		models.Account{ID: "bob", Balance: 4, Seq: 2},
		record,
	))
	assert.Error(t, repo.SaveTransfer(ctx,
		models.Account{ID: "alice", Balance: 0, Seq: 1},
		models.Account{ID: "carol", Balance: 6},
		record,
	))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Account{
		{ID: "alice", Balance: 6, Seq: 1},
		{ID: "bob", Balance: 4, Seq: 2},
	}, snap.Accounts)
	assert.Equal(t, []models.TransactionRecord{record}, snap.Transactions)

	// Load returns copies.
	snap.Accounts[0].Balance = 1000
	again, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), again.Accounts[0].Balance)
}
