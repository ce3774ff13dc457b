package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samba-xyz/samba-relay/pkg/config"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/models"
)

const fakeExtensionPayload = `{
	"claim": {
		"provider": "http",
		"parameters": "{}",
		"context": "{\"intentHash\":\"42\"}",
		"identifier": "0x1111111111111111111111111111111111111111111111111111111111111111",
		"owner": "0x2222222222222222222222222222222222222222",
		"timestampS": 1717171717,
		"epoch": 1
	},
	"signatures": {"claimSignature": {"0": 222, "1": 173}}
}`

// fakeProofSource scripts the extension bridge for poller tests.
type fakeProofSource struct {
	txs          []Transaction
	txErr        error
	generateErr  error
	states       []ProofState
	statePos     int
	payload      json.RawMessage
	generated    bool
	generatedFor string
}

func (f *fakeProofSource) Transactions(_ context.Context, _ models.Platform) ([]Transaction, error) {
	return f.txs, f.txErr
}

func (f *fakeProofSource) GenerateProof(_ context.Context, _ models.Platform, txID, intentHash string) error {
	if f.generateErr != nil {
		return f.generateErr
	}
	f.generated = true
	f.generatedFor = intentHash
	return nil
}

func (f *fakeProofSource) ProofStatus(_ context.Context) (ProofState, json.RawMessage, error) {
	if !f.generated {
		return ProofStateIdle, nil, nil
	}
	state := f.states[f.statePos]
	if f.statePos < len(f.states)-1 {
		f.statePos++
	}
	if state == ProofStateCompleted {
		return state, f.payload, nil
	}
	return state, nil, nil
}

func pollService(timeout time.Duration) *Service {
	cfg := &config.Config{
		ProofFetchInterval: time.Millisecond,
		ProofTimeout:       timeout,
	}
	return New(cfg, nil, nil, nil, &logger.EmptyLogger{})
}

func TestAwaitProofFound(t *testing.T) {
	source := &fakeProofSource{
		txs: []Transaction{
			{ID: "tx-1", Recipient: "bob", Amount: "- $5.00"},
			{ID: "tx-2", Recipient: "Alice-Payee", Amount: "- $3.00"},
		},
		states:  []ProofState{ProofStateGenerating, ProofStateCompleted},
		payload: json.RawMessage(fakeExtensionPayload),
	}

	svc := pollService(time.Second)
	proof, outcome, err := svc.AwaitProof(context.Background(), source, ProofRequest{
		Platform:   models.PlatformVenmo,
		Recipient:  "alice-payee",
		Amount:     "3.00",
		IntentHash: "0x2a",
	})

	require.NoError(t, err)
	assert.Equal(t, ProofFound, outcome)
	require.NotNil(t, proof)
	assert.Equal(t, "http", proof.ClaimInfo.Provider)
	// Intent hash handed to the generator in decimal form.
	assert.Equal(t, "42", source.generatedFor)
}

func TestAwaitProofMatchingIsExact(t *testing.T) {
	source := &fakeProofSource{
		txs: []Transaction{
			{ID: "tx-1", Recipient: "alice", Amount: "- $3.01"},
			{ID: "tx-2", Recipient: "someone-else", Amount: "- $3.00"},
		},
	}

	svc := pollService(25 * time.Millisecond)
	_, outcome, err := svc.AwaitProof(context.Background(), source, ProofRequest{
		Platform:   models.PlatformVenmo,
		Recipient:  "alice",
		Amount:     "3.00",
		IntentHash: "0x2a",
	})

	require.NoError(t, err)
	assert.Equal(t, ProofTimedOut, outcome)
	assert.False(t, source.generated)
}

func TestMatchTransactionFormattedAmount(t *testing.T) {
	txs := []Transaction{
		{ID: "tx-1", Recipient: "bob", Amount: "- $3.00"},
		{ID: "tx-2", Recipient: "ibrighton", Amount: "- $3.00"},
	}

	t.Run("plain fiat amount matches the debit string", func(t *testing.T) {
		match, ok := matchTransaction(txs, "ibrighton", "3.00")
		require.True(t, ok)
		assert.Equal(t, "tx-2", match.ID)
	})

	t.Run("already formatted amount matches too", func(t *testing.T) {
		match, ok := matchTransaction(txs, "ibrighton", "- $3.00")
		require.True(t, ok)
		assert.Equal(t, "tx-2", match.ID)
	})

	t.Run("no numeric normalization", func(t *testing.T) {
		_, ok := matchTransaction([]Transaction{{Recipient: "ibrighton", Amount: "- $3.0"}}, "ibrighton", "3.00")
		assert.False(t, ok)
	})
}

func TestAwaitProofFailed(t *testing.T) {
	source := &fakeProofSource{
		txs:    []Transaction{{ID: "tx-1", Recipient: "alice", Amount: "- $3.00"}},
		states: []ProofState{ProofStateFailed},
	}

	svc := pollService(time.Second)
	_, outcome, err := svc.AwaitProof(context.Background(), source, ProofRequest{
		Platform:   models.PlatformVenmo,
		Recipient:  "alice",
		Amount:     "3.00",
		IntentHash: "0x2a",
	})

	require.NoError(t, err)
	assert.Equal(t, ProofFailed, outcome)
}

func TestAwaitProofTimeout(t *testing.T) {
	source := &fakeProofSource{
		txs:    []Transaction{{ID: "tx-1", Recipient: "alice", Amount: "- $3.00"}},
		states: []ProofState{ProofStateGenerating},
	}

	svc := pollService(20 * time.Millisecond)
	_, outcome, err := svc.AwaitProof(context.Background(), source, ProofRequest{
		Platform:   models.PlatformVenmo,
		Recipient:  "alice",
		Amount:     "3.00",
		IntentHash: "0x2a",
	})

	require.NoError(t, err)
	assert.Equal(t, ProofTimedOut, outcome)
}

func TestAwaitProofCancelled(t *testing.T) {
	source := &fakeProofSource{txErr: errors.New("bridge offline")}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	svc := pollService(time.Minute)
	_, outcome, err := svc.AwaitProof(ctx, source, ProofRequest{
		Platform:   models.PlatformVenmo,
		Recipient:  "alice",
		Amount:     "3.00",
		IntentHash: "0x2a",
	})

	assert.Equal(t, ProofCancelled, outcome)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitProofGenerationRequestFails(t *testing.T) {
	source := &fakeProofSource{
		txs:         []Transaction{{ID: "tx-1", Recipient: "alice", Amount: "- $3.00"}},
		generateErr: errors.New("extension rejected request"),
	}

	svc := pollService(time.Second)
	_, outcome, err := svc.AwaitProof(context.Background(), source, ProofRequest{
		Platform:   models.PlatformVenmo,
		Recipient:  "alice",
		Amount:     "3.00",
		IntentHash: "0x2a",
	})

	assert.Equal(t, ProofFailed, outcome)
	assert.Error(t, err)
}
