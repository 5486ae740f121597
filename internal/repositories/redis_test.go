package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	logger.Initialize("debug")
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { redisC.Terminate(ctx) })

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())

	return rdb
}

func TestRedisRepository(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	repo := NewRedisRepository(rdb, "test")

	t.Run("empty ledger", func(t *testing.T) {
		snap, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Accounts)
		assert.Empty(t, snap.Transactions)
	})

	t.Run("accounts and transfer round trip", func(t *testing.T) {
		require.NoError(t, repo.SaveAccount(ctx, models.Account{ID: "alice", Seq: 1}))
		require.NoError(t, repo.SaveAccount(ctx, models.Account{ID: "bob", Seq: 2}))
		assert.ErrorContains(t, repo.SaveAccount(ctx, models.Account{ID: "alice", Seq: 3}), "already stored")

		require.NoError(t, repo.SaveBalance(ctx, models.Account{ID: "alice", Balance: 100, Seq: 1}))
		assert.ErrorContains(t, repo.SaveBalance(ctx, models.Account{ID: "carol", Balance: 5}), "not stored")

		record := models.TransactionRecord{
			ID:        "6f1c7d1e-7d43-4a39-9b5a-1b1f2c3d4e5f",
			Seq:       1,
			Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			From:      "alice",
			To:        "bob",
			Amount:    30,
		}
		require.NoError(t, repo.SaveTransfer(ctx,
			models.Account{ID: "alice", Balance: 70, Seq: 1},
			models.Account{ID: "bob", Balance: 30, Seq: 2},
			record,
		))
		assert.Error(t, repo.SaveTransfer(ctx,
			models.Account{ID: "alice", Balance: 0, Seq: 1},
			models.Account{ID: "carol", Balance: 70},
			record,
		))

		snap, err := NewRedisRepository(rdb, "test").Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.Account{
			{ID: "alice", Balance: 70, Seq: 1},
			{ID: "bob", Balance: 30, Seq: 2},
		}, snap.Accounts)
		assert.Equal(t, []models.TransactionRecord{record}, snap.Transactions)
	})

	t.Run("inconsistent keys", func(t *testing.T) {
		require.NoError(t, rdb.RPush(ctx, "broken:account_ids", "ghost").Err())

		_, err := NewRedisRepository(rdb, "broken").Load(ctx)
		assert.Error(t, err)
	})
}
