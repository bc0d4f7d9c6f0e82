package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/AgentGatePay/TX/pkg/chains"
	"github.com/AgentGatePay/TX/pkg/constants"
)

// Backend is the subset of ethclient.Client the transfer executor needs.
// Keeping it narrow lets tests substitute a fake chain.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Client provides RPC access to one network with failover across its
// configured endpoints.
type Client struct {
	chain *chains.ChainConfig
}

// NewClient creates an RPC client for the given chain configuration
func NewClient(chain *chains.ChainConfig) *Client {
	return &Client{chain: chain}
}

// Network returns the network name this client talks to
func (c *Client) Network() string {
	return c.chain.Name
}

// ChainID returns the numeric chain ID of the network
func (c *Client) ChainID() *big.Int {
	return big.NewInt(c.chain.ChainID)
}

// Backend dials the first reachable endpoint and returns a connected backend
// together with its close function. Callers own the connection.
func (c *Client) Backend(ctx context.Context) (Backend, func(), error) {
	var lastErr error
	for _, endpoint := range c.chain.RPCEndpoints {
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		return client, client.Close, nil
	}
	return nil, nil, &RPCError{Network: c.chain.Name, Err: fmt.Errorf("no reachable RPC endpoint: %w", lastErr)}
}

// GetTransactionReceipt fetches a transaction receipt with endpoint failover.
// Uses a random start position for load balancing across RPC endpoints.
// Returns ErrReceiptNotFound when every endpoint reports no receipt.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	endpoints := c.chain.RPCEndpoints
	if len(endpoints) == 0 {
		return nil, &RPCError{Network: c.chain.Name, Err: fmt.Errorf("no RPC endpoints configured")}
	}

	startIdx := rand.Intn(len(endpoints))
	notFound := false

	for i := 0; i < len(endpoints); i++ {
		if i > 0 {
			delay := time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond
			time.Sleep(delay)
		}

		// Wrap around using modulo for round-robin
		endpoint := endpoints[(startIdx+i)%len(endpoints)]

		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, constants.TransactionReceiptTimeout)
		receipt, err := patchedTransactionReceipt(callCtx, client, common.HexToHash(txHash))
		client.Close()
		cancel()

		if err != nil {
			if errors.Is(err, ErrReceiptNotFound) {
				notFound = true
			}
			continue
		}

		return &Receipt{receipt: receipt}, nil
	}

	if notFound {
		return nil, ErrReceiptNotFound
	}
	return nil, &RPCError{Network: c.chain.Name, Err: fmt.Errorf("all RPC endpoints failed")}
}

// IsHealthy reports whether any configured endpoint answers a block number
// query. One reachable endpoint is enough for the network to count as up.
func (c *Client) IsHealthy(ctx context.Context) bool {
	for _, endpoint := range c.chain.RPCEndpoints {
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, err = client.BlockNumber(callCtx)
		cancel()
		client.Close()

		if err == nil {
			return true
		}
	}
	return false
}

// patchedTransactionReceipt gets a transaction receipt via raw RPC. Some nodes
// (Base in particular) attach a non-standard blockTimestamp field to logs that
// go-ethereum's receipt type refuses to decode, so it is stripped first.
func patchedTransactionReceipt(ctx context.Context, client *ethclient.Client, txHash common.Hash) (*ethtypes.Receipt, error) {
	var raw json.RawMessage
	err := client.Client().CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, ErrReceiptNotFound
	}

	cleaned, err := stripBlockTimestampFromLogs(raw)
	if err != nil {
		return nil, err
	}

	var receipt ethtypes.Receipt
	if err := json.Unmarshal(cleaned, &receipt); err != nil {
		return nil, err
	}

	return &receipt, nil
}

// stripBlockTimestampFromLogs removes the blockTimestamp field from transaction logs
func stripBlockTimestampFromLogs(raw json.RawMessage) ([]byte, error) {
	var receiptMap map[string]interface{}
	if err := json.Unmarshal(raw, &receiptMap); err != nil {
		return nil, err
	}

	logs, ok := receiptMap["logs"].([]interface{})
	if ok {
		for _, log := range logs {
			logMap, ok := log.(map[string]interface{})
			if ok {
				delete(logMap, "blockTimestamp")
			}
		}
	}

	return json.Marshal(receiptMap)
}

// transferEventSignature is the topic hash of Transfer(address,address,uint256)
var transferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// TransferEvent is an ERC-20 Transfer log entry extracted from a receipt
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Asset common.Address // ERC-20 contract address that emitted the event
}

// Receipt wraps an EVM transaction receipt
type Receipt struct {
	receipt *ethtypes.Receipt
}

// NewReceipt wraps a raw go-ethereum receipt (used by tests)
func NewReceipt(receipt *ethtypes.Receipt) *Receipt {
	return &Receipt{receipt: receipt}
}

func (r *Receipt) IsSuccessful() bool {
	return r.receipt.Status == ethtypes.ReceiptStatusSuccessful
}

func (r *Receipt) BlockNumber() uint64 {
	if r.receipt.BlockNumber == nil {
		return 0
	}
	return r.receipt.BlockNumber.Uint64()
}

func (r *Receipt) GasUsed() uint64 {
	return r.receipt.GasUsed
}

// TransferEvent returns the first ERC-20 Transfer event in the receipt's logs
func (r *Receipt) TransferEvent() (*TransferEvent, error) {
	for _, log := range r.receipt.Logs {
		if len(log.Topics) >= 3 && log.Topics[0] == transferEventSignature {
			return &TransferEvent{
				From:  common.HexToAddress(log.Topics[1].Hex()),
				To:    common.HexToAddress(log.Topics[2].Hex()),
				Value: common.BytesToHash(log.Data).Big(),
				Asset: log.Address,
			}, nil
		}
	}

	return nil, fmt.Errorf("no transfer event found")
}

// AddressesEqual compares two addresses case-insensitively (EIP-55 checksums
// differ only in letter case).
func AddressesEqual(addr1, addr2 string) bool {
	return strings.EqualFold(addr1, addr2)
}
