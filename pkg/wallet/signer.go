// Package wallet signs and broadcasts ERC-20 transfers from a single
// configured key and waits for their confirmation.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AgentGatePay/TX/pkg/chains/evm"
	"github.com/AgentGatePay/TX/pkg/constants"
)

const erc20TransferABI = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

// Transfer statuses
const (
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Chain provides connectivity to one network
type Chain interface {
	Network() string
	ChainID() *big.Int
	Backend(ctx context.Context) (evm.Backend, func(), error)
}

// TransferParams describes one ERC-20 transfer to sign and broadcast
type TransferParams struct {
	Network   string
	Token     common.Address
	Recipient common.Address
	Amount    *big.Int
}

// TransferResult is the outcome of a broadcast transfer, immutable once populated
type TransferResult struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Status      string
}

// Signer signs and broadcasts ERC-20 transfers from one private key.
//
// Each outgoing transaction consumes a nonce from the key's per-chain
// sequence, so transfers for the same network are serialized behind a mutex;
// without it, concurrent requests would race on nonce assignment and produce
// conflicting transactions.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chains  map[string]Chain
	logger  *slog.Logger

	locks map[string]*sync.Mutex

	// overridable in tests
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// NewSigner creates a signer from a hex-encoded private key
func NewSigner(privateKeyHex string, networks map[string]Chain, logger *slog.Logger) (*Signer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	locks := make(map[string]*sync.Mutex, len(networks))
	for network := range networks {
		locks[network] = &sync.Mutex{}
	}

	return &Signer{
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		chains:         networks,
		logger:         logger,
		locks:          locks,
		confirmTimeout: constants.ConfirmationTimeout,
		pollInterval:   constants.ConfirmationPollInterval,
	}, nil
}

// Address returns the account address derived from the signing key
func (s *Signer) Address() common.Address {
	return s.address
}

// Transfer signs, broadcasts and confirms a single ERC-20 transfer.
// When the transaction confirms with failure status, the populated result is
// returned together with a *RevertError.
func (s *Signer) Transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	chain, lock, err := s.chainFor(p.Network)
	if err != nil {
		return nil, err
	}

	lock.Lock()
	defer lock.Unlock()

	backend, closeBackend, err := chain.Backend(ctx)
	if err != nil {
		return nil, err
	}
	defer closeBackend()

	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, &BroadcastError{Network: p.Network, Err: fmt.Errorf("failed to read account nonce: %w", err)}
	}

	return s.sendAndConfirm(ctx, backend, chain, nonce, p)
}

// TransferPair executes two sequential transfers with explicit nonces N and
// N+1 under a single nonce-lock acquisition. The second transfer is never
// attempted unless the first confirmed with success status; on failure the
// first leg's result is still returned so callers can report the partial
// outcome. Blockchains offer no rollback for the landed first leg.
func (s *Signer) TransferPair(ctx context.Context, first, second TransferParams) (*TransferResult, *TransferResult, error) {
	if first.Network != second.Network {
		return nil, nil, fmt.Errorf("paired transfers must target the same network, got %s and %s", first.Network, second.Network)
	}

	chain, lock, err := s.chainFor(first.Network)
	if err != nil {
		return nil, nil, err
	}

	lock.Lock()
	defer lock.Unlock()

	backend, closeBackend, err := chain.Backend(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer closeBackend()

	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, nil, &BroadcastError{Network: first.Network, Err: fmt.Errorf("failed to read account nonce: %w", err)}
	}

	firstResult, err := s.sendAndConfirm(ctx, backend, chain, nonce, first)
	if err != nil {
		return firstResult, nil, err
	}

	secondResult, err := s.sendAndConfirm(ctx, backend, chain, nonce+1, second)
	return firstResult, secondResult, err
}

func (s *Signer) chainFor(network string) (Chain, *sync.Mutex, error) {
	chain, ok := s.chains[network]
	if !ok {
		return nil, nil, fmt.Errorf("no chain client configured for network: %s", network)
	}
	return chain, s.locks[network], nil
}

// sendAndConfirm builds, signs and broadcasts one transfer with the given
// nonce, then polls for its receipt until confirmation or timeout.
func (s *Signer) sendAndConfirm(ctx context.Context, backend evm.Backend, chain Chain, nonce uint64, p TransferParams) (*TransferResult, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	calldata, err := parsedABI.Pack("transfer", p.Recipient, p.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer calldata: %w", err)
	}

	gasLimit, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &p.Token,
		Data: calldata,
	})
	if err != nil {
		if isInsufficientFunds(err) {
			return nil, ErrInsufficientFunds
		}
		// Estimation can fail transiently; fall back and let the node decide
		gasLimit = constants.FallbackGasLimit
	}

	gasTipCap, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, &BroadcastError{Network: p.Network, Err: fmt.Errorf("failed to get gas tip cap: %w", err)}
	}

	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, &BroadcastError{Network: p.Network, Err: fmt.Errorf("failed to get chain head: %w", err)}
	}

	gasFeeCap := new(big.Int).Set(gasTipCap)
	if head.BaseFee != nil {
		gasFeeCap.Add(gasFeeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chain.ChainID(),
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &p.Token,
		Value:     big.NewInt(0),
		Data:      calldata,
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewLondonSigner(chain.ChainID()), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	txHash := signedTx.Hash().Hex()

	s.logger.Info("broadcasting transfer",
		"network", p.Network,
		"from", s.address.Hex(),
		"to", p.Recipient.Hex(),
		"token", p.Token.Hex(),
		"amount", p.Amount.String(),
		"nonce", nonce,
		"txHash", txHash)

	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		if isInsufficientFunds(err) {
			return nil, ErrInsufficientFunds
		}
		return nil, &BroadcastError{Network: p.Network, Err: err}
	}

	return s.waitForConfirmation(ctx, backend, p.Network, signedTx.Hash())
}

// waitForConfirmation polls for the transaction receipt. A timeout means only
// "give up waiting", not "cancel the broadcast".
func (s *Signer) waitForConfirmation(ctx context.Context, backend evm.Backend, network string, txHash common.Hash) (*TransferResult, error) {
	deadline := time.NewTimer(s.confirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			result := &TransferResult{
				TxHash:  txHash.Hex(),
				GasUsed: receipt.GasUsed,
				Status:  StatusConfirmed,
			}
			if receipt.BlockNumber != nil {
				result.BlockNumber = receipt.BlockNumber.Uint64()
			}

			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				result.Status = StatusFailed
				s.logger.Warn("transfer reverted on chain", "network", network, "txHash", result.TxHash)
				return result, &RevertError{TxHash: result.TxHash}
			}

			s.logger.Info("transfer confirmed",
				"network", network,
				"txHash", result.TxHash,
				"block", result.BlockNumber,
				"gasUsed", result.GasUsed)
			return result, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.logger.Debug("receipt poll failed", "network", network, "txHash", txHash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, &ConfirmationTimeoutError{TxHash: txHash.Hex(), Timeout: s.confirmTimeout}
		case <-deadline.C:
			return nil, &ConfirmationTimeoutError{TxHash: txHash.Hex(), Timeout: s.confirmTimeout}
		case <-ticker.C:
		}
	}
}

func isInsufficientFunds(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "insufficient funds")
}
