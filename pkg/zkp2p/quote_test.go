package zkp2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

func TestSelectQuote(t *testing.T) {
	quotes := []models.Quote{
		{DepositID: "1", ConversionRate: "1020000000000000000", PayeeAddress: "0xaaa1"},
		{DepositID: "2", ConversionRate: "990000000000000000", PayeeAddress: "0xaaa2"},
		{DepositID: "3", ConversionRate: "1000000000000000000", PayeeAddress: "0xaaa3"},
	}

	t.Run("lowest rate wins", func(t *testing.T) {
		selected, err := SelectQuote(quotes, "")
		require.NoError(t, err)
		assert.Equal(t, "2", selected.DepositID)
	})

	t.Run("selection does not mutate input", func(t *testing.T) {
		_, err := SelectQuote(quotes, "")
		require.NoError(t, err)
		assert.Equal(t, "1", quotes[0].DepositID)
	})

	t.Run("default payee overrides rate", func(t *testing.T) {
		selected, err := SelectQuote(quotes, "0xAAA1")
		require.NoError(t, err)
		assert.Equal(t, "1", selected.DepositID)
	})

	t.Run("override ignored when payee absent", func(t *testing.T) {
		selected, err := SelectQuote(quotes, "0xffff")
		require.NoError(t, err)
		assert.Equal(t, "2", selected.DepositID)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		first, err := SelectQuote(quotes, "")
		require.NoError(t, err)
		second, err := SelectQuote(quotes, "")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty list means no liquidity", func(t *testing.T) {
		_, err := SelectQuote(nil, "")
		assert.ErrorIs(t, err, ErrNoLiquidity)
	})

	t.Run("unparseable rate is a schema error", func(t *testing.T) {
		bad := []models.Quote{
			{DepositID: "1", ConversionRate: "1.05"},
			{DepositID: "2", ConversionRate: "990000000000000000"},
		}
		_, err := SelectQuote(bad, "")
		var schemaErr *SchemaError
		assert.ErrorAs(t, err, &schemaErr)
	})
}
