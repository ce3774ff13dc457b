package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

func TestMemoryStoreIntents(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	t.Run("get missing", func(t *testing.T) {
		_, err := st.GetIntent(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert and get", func(t *testing.T) {
		record := &models.IntentRecord{
			Email:      "user@example.com",
			IntentHash: "0xfeed",
			Platform:   models.PlatformVenmo,
			Currency:   models.CurrencyUSD,
			CreatedAt:  time.Now().UTC(),
		}
		require.NoError(t, st.UpsertIntent(ctx, record))

		got, err := st.GetIntent(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, record.IntentHash, got.IntentHash)
	})

	t.Run("upsert replaces instead of accumulating", func(t *testing.T) {
		replacement := &models.IntentRecord{Email: "user@example.com", IntentHash: "0xbeef"}
		require.NoError(t, st.UpsertIntent(ctx, replacement))

		got, err := st.GetIntent(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "0xbeef", got.IntentHash)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		got, err := st.GetIntent(ctx, "user@example.com")
		require.NoError(t, err)
		got.IntentHash = "0xmutated"

		again, err := st.GetIntent(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, "0xbeef", again.IntentHash)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, st.DeleteIntent(ctx, "user@example.com"))
		_, err := st.GetIntent(ctx, "user@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		assert.NoError(t, st.DeleteIntent(ctx, "user@example.com"))
	})
}

func TestMemoryStoreWrappers(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, err := st.GetWrapperContract(ctx, "user@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.SetWrapperContract(ctx, "user@example.com", "0x9000000000000000000000000000000000000009"))

	addr, err := st.GetWrapperContract(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "0x9000000000000000000000000000000000000009", addr)
}
