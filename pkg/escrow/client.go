// Package escrow manages on-chain interactions with per-user wrapper
// contracts around the ZKP2P escrow.
package escrow

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/samba-xyz/samba-relay/pkg/config"
	"github.com/samba-xyz/samba-relay/pkg/logger"
	"github.com/samba-xyz/samba-relay/pkg/metrics"
)

// VerifierData carries the per-verifier payload of an offramp intent.
type VerifierData struct {
	IntentGatingService common.Address
	PayeeDetails        [32]byte
	Data                []byte
}

// CurrencyRate pairs a hashed currency code with its conversion rate.
type CurrencyRate struct {
	Code           [32]byte
	ConversionRate *big.Int
}

// OfframpIntent is the deposit descriptor passed to fulfillAndOfframp. Field
// order and types mirror the contract tuple.
type OfframpIntent struct {
	Verifiers  []common.Address
	Data       []VerifierData
	Currencies [][]CurrencyRate
}

// Client signs and submits wrapper contract transactions.
type Client struct {
	eth        *ethclient.Client
	auth       *bind.TransactOpts
	chainID    *big.Int
	wrapperABI abi.ABI
	escrowAddr common.Address
	tokenAddr  common.Address
	bytecode   []byte
	logger     logger.Logger
}

// New connects to the RPC endpoint and prepares a keyed transactor.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(WrapperABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wrapper ABI: %w", err)
	}

	var bytecode []byte
	if cfg.WrapperBytecode != "" {
		bytecode = common.FromHex(cfg.WrapperBytecode)
	}

	return &Client{
		eth:        eth,
		auth:       auth,
		chainID:    chainID,
		wrapperABI: parsed,
		escrowAddr: common.HexToAddress(cfg.EscrowAddress),
		tokenAddr:  common.HexToAddress(cfg.TokenAddress),
		bytecode:   bytecode,
		logger:     log,
	}, nil
}

// RelayAddress returns the address the relay signs transactions with.
func (c *Client) RelayAddress() common.Address {
	return c.auth.From
}

// Ping checks RPC connectivity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.eth.BlockNumber(ctx)
	return err
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// SignalIntent submits signalIntent on the wrapper and returns the intent hash
// emitted by the IntentSignaled event along with the transaction hash.
func (c *Client) SignalIntent(ctx context.Context, wrapper common.Address, depositID, amount *big.Int, verifier common.Address, currency [32]byte, gatingSignature []byte) (common.Hash, common.Hash, error) {
	receipt, txHash, err := c.transact(ctx, wrapper, "signalIntent", depositID, amount, verifier, currency, gatingSignature)
	if err != nil {
		return common.Hash{}, txHash, err
	}

	intentHash, found := c.indexedTopic(receipt, "IntentSignaled", 3)
	if !found {
		return common.Hash{}, txHash, &ContractError{Op: "signalIntent", Err: fmt.Errorf("IntentSignaled event not found in receipt %s", txHash.Hex())}
	}
	return intentHash, txHash, nil
}

// FulfillAndOfframp submits the payment proof and offramp descriptor. It
// returns the deposit ID from the DepositReceived event; an empty deposit ID
// with a nil error means the transaction succeeded but the event was absent.
func (c *Client) FulfillAndOfframp(ctx context.Context, wrapper common.Address, amount *big.Int, intentHash [32]byte, paymentProof []byte, intent OfframpIntent) (string, common.Hash, error) {
	receipt, txHash, err := c.transact(ctx, wrapper, "fulfillAndOfframp", amount, intentHash, paymentProof, intent)
	if err != nil {
		return "", txHash, err
	}

	topic, found := c.indexedTopic(receipt, "DepositReceived", 1)
	if !found {
		metrics.MissingDepositEvents.Inc()
		c.logger.Error("DepositReceived event not found in receipt %s", txHash.Hex())
		return "", txHash, nil
	}
	return new(big.Int).SetBytes(topic[:]).String(), txHash, nil
}

// CancelIntent submits cancelIntent and waits for the transaction to mine.
func (c *Client) CancelIntent(ctx context.Context, wrapper common.Address, intentHash [32]byte) (common.Hash, error) {
	receipt, txHash, err := c.transact(ctx, wrapper, "cancelIntent", intentHash)
	if err != nil {
		return txHash, err
	}

	if _, found := c.indexedTopic(receipt, "IntentCanceled", 1); !found {
		c.logger.Error("IntentCanceled event not found in receipt %s", txHash.Hex())
	}
	return txHash, nil
}

// DeployWrapper deploys a fresh wrapper contract owned by the given address.
func (c *Client) DeployWrapper(ctx context.Context, owner common.Address) (common.Address, common.Hash, error) {
	if len(c.bytecode) == 0 {
		return common.Address{}, common.Hash{}, fmt.Errorf("wrapper bytecode not configured")
	}

	opts := c.transactOpts(ctx)
	addr, tx, _, err := bind.DeployContract(opts, c.wrapperABI, c.bytecode, c.eth, c.escrowAddr, c.tokenAddr, owner)
	if err != nil {
		return common.Address{}, common.Hash{}, classifyContractError("deployWrapper", err)
	}

	c.logger.Info("Deploying wrapper contract at %s (tx %s)", addr.Hex(), tx.Hash().Hex())
	if _, err := bind.WaitDeployed(ctx, c.eth, tx); err != nil {
		return common.Address{}, tx.Hash(), &ContractError{Op: "deployWrapper", Err: err}
	}
	return addr, tx.Hash(), nil
}

// EncodeAddressList ABI-encodes a list of addresses, used for verifier data
// payloads that carry a payer allowlist.
func EncodeAddressList(addrs []common.Address) ([]byte, error) {
	addressListType, err := abi.NewType("address[]", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{{Type: addressListType}}
	return args.Pack(addrs)
}

// transact simulates the call, submits it, and waits for the receipt.
// Simulation first means reverts surface as classified errors without
// spending gas.
func (c *Client) transact(ctx context.Context, to common.Address, method string, args ...interface{}) (*types.Receipt, common.Hash, error) {
	input, err := c.wrapperABI.Pack(method, args...)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	msg := ethereum.CallMsg{From: c.auth.From, To: &to, Data: input}
	if _, err := c.eth.CallContract(ctx, msg, nil); err != nil {
		return nil, common.Hash{}, classifyContractError(method, err)
	}

	contract := bind.NewBoundContract(to, c.wrapperABI, c.eth, c.eth, c.eth)
	tx, err := contract.Transact(c.transactOpts(ctx), method, args...)
	if err != nil {
		return nil, common.Hash{}, classifyContractError(method, err)
	}

	c.logger.Debug("Submitted %s transaction %s", method, tx.Hash().Hex())
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, tx.Hash(), &ContractError{Op: method, Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, tx.Hash(), &ContractError{Op: method, Err: fmt.Errorf("transaction %s reverted on-chain", tx.Hash().Hex())}
	}
	return receipt, tx.Hash(), nil
}

func (c *Client) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.auth
	opts.Context = ctx
	return &opts
}

// indexedTopic scans receipt logs for the named event and returns the topic at
// the given index.
func (c *Client) indexedTopic(receipt *types.Receipt, event string, index int) (common.Hash, bool) {
	eventID := c.wrapperABI.Events[event].ID
	for _, log := range receipt.Logs {
		if len(log.Topics) > index && log.Topics[0] == eventID {
			return log.Topics[index], true
		}
	}
	return common.Hash{}, false
}
