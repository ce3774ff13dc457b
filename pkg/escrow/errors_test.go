package escrow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyContractError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, classifyContractError("signalIntent", nil))
	})

	t.Run("unfulfilled intent", func(t *testing.T) {
		err := classifyContractError("signalIntent", errors.New("execution reverted: Account has unfulfilled intent"))
		assert.ErrorIs(t, err, ErrUnfulfilledIntentExists)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		err := classifyContractError("signalIntent", errors.New("insufficient funds for gas * price + value"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("generic revert keeps reason", func(t *testing.T) {
		err := classifyContractError("cancelIntent", errors.New("execution reverted: Intent does not exist"))
		var contractErr *ContractError
		require.ErrorAs(t, err, &contractErr)
		assert.Equal(t, "cancelIntent", contractErr.Op)
		assert.Equal(t, "Intent does not exist", contractErr.Reason)
	})

	t.Run("revert without reason", func(t *testing.T) {
		err := classifyContractError("cancelIntent", errors.New("execution reverted"))
		var contractErr *ContractError
		require.ErrorAs(t, err, &contractErr)
		assert.Empty(t, contractErr.Reason)
	})

	t.Run("unknown error wrapped", func(t *testing.T) {
		cause := errors.New("nonce too low")
		err := classifyContractError("signalIntent", cause)
		var contractErr *ContractError
		require.ErrorAs(t, err, &contractErr)
		assert.ErrorIs(t, err, cause)
	})
}

func TestEncodeAddressList(t *testing.T) {
	encoded, err := EncodeAddressList(nil)
	require.NoError(t, err)
	// Offset word plus length word for an empty dynamic array.
	assert.Len(t, encoded, 64)
}
