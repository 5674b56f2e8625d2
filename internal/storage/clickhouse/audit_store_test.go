package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/storage"
	"stark-wallet/internal/storage/clickhouse"
)

func TestAuditStore_AppendAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewAuditStore(conn)
	ctx := context.Background()

	records := []*domain.AuditRecord{
		{
			Operation:      "wallet_created",
			ExternalUserID: "user-001",
			Address:        "0x49d3",
			Status:         "success",
			Timestamp:      1700000000000,
		},
		{
			Operation:      "transfer",
			ExternalUserID: "user-001",
			Address:        "0x49d3",
			Asset:          "ETH",
			Amount:         "1000000000000000000",
			TransactionID:  "0xaa",
			Status:         "success",
			Timestamp:      1700000001000,
		},
		{
			Operation:      "swap",
			ExternalUserID: "user-002",
			Asset:          "ETH",
			CounterAsset:   "USDC",
			Amount:         "500",
			Status:         "success",
			Timestamp:      1700000002000,
		},
	}
	for _, r := range records {
		require.NoError(t, store.Append(ctx, r))
	}

	got, err := store.GetByExternalUserID(ctx, "user-001")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "wallet_created", got[0].Operation)
	assert.Equal(t, "transfer", got[1].Operation)
	assert.Equal(t, "1000000000000000000", got[1].Amount)
	assert.Equal(t, "0xaa", got[1].TransactionID)
	assert.Equal(t, int64(1700000001000), got[1].Timestamp)

	other, err := store.GetByExternalUserID(ctx, "user-002")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "USDC", other[0].CounterAsset)
}

func TestAuditStore_TimestampOrdering(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewAuditStore(conn)
	ctx := context.Background()

	// Inserted out of order, must come back timestamp ascending.
	timestamps := []int64{1700000003000, 1700000001000, 1700000002000}
	for i, ts := range timestamps {
		require.NoError(t, store.Append(ctx, &domain.AuditRecord{
			Operation:      "transfer",
			ExternalUserID: "user-010",
			TransactionID:  string(rune('a' + i)),
			Timestamp:      ts,
		}))
	}

	got, err := store.GetByExternalUserID(ctx, "user-010")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Timestamp, got[i].Timestamp)
	}
}

func TestAuditStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewAuditStore(conn)
	ctx := context.Background()

	assert.ErrorIs(t, store.Append(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Append(ctx, &domain.AuditRecord{Operation: "transfer"}), storage.ErrInvalidInput)
}
