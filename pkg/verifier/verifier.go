// Package verifier confirms that an inbound token transfer landed at the
// expected gateway address before any routing happens. The check is advisory:
// it trusts whatever the RPC node reports and does not confirm finality
// beyond that.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AgentGatePay/TX/pkg/chains"
	"github.com/AgentGatePay/TX/pkg/chains/evm"
)

// UnknownTokenSymbol marks a transfer whose contract is not in the token registry
const UnknownTokenSymbol = "UNKNOWN"

// ErrTransactionNotFound is returned when no receipt exists for the hash
// (not yet mined, or the hash is invalid).
var ErrTransactionNotFound = errors.New("transaction not found or not confirmed yet")

// ErrNoTransferEvent is returned when the receipt holds no ERC-20 Transfer event
var ErrNoTransferEvent = errors.New("no token transfer found in transaction")

// RecipientMismatchError is returned when the transfer destination is not the
// expected address.
type RecipientMismatchError struct {
	Expected common.Address
	Got      common.Address
}

func (e *RecipientMismatchError) Error() string {
	return fmt.Sprintf("payment not sent to expected recipient: expected %s, received %s", e.Expected.Hex(), e.Got.Hex())
}

// InboundTransfer describes a verified transfer extracted from a receipt's
// event log. The source address is deliberately not exposed; routing decisions
// key off the destination only.
type InboundTransfer struct {
	To           common.Address
	Amount       *big.Int
	TokenAddress common.Address
	TokenSymbol  string
}

// ReceiptSource fetches transaction receipts for one network
type ReceiptSource interface {
	GetTransactionReceipt(ctx context.Context, txHash string) (*evm.Receipt, error)
}

// Verifier inspects transaction receipts for inbound token transfers
type Verifier struct {
	clients  map[string]ReceiptSource
	registry *chains.Registry
	logger   *slog.Logger
}

// NewVerifier creates a verifier over the given per-network receipt sources
func NewVerifier(clients map[string]ReceiptSource, registry *chains.Registry, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{clients: clients, registry: registry, logger: logger}
}

// VerifyInbound fetches the receipt for txHash on network and confirms it
// contains a token transfer whose destination equals expectedRecipient.
func (v *Verifier) VerifyInbound(ctx context.Context, txHash, network string, expectedRecipient common.Address) (*InboundTransfer, error) {
	client, ok := v.clients[network]
	if !ok {
		return nil, &chains.UnsupportedNetworkError{Network: network, Supported: v.registry.SupportedNetworks()}
	}

	receipt, err := client.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, evm.ErrReceiptNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash, err)
	}

	event, err := receipt.TransferEvent()
	if err != nil {
		return nil, ErrNoTransferEvent
	}

	if !evm.AddressesEqual(event.To.Hex(), expectedRecipient.Hex()) {
		return nil, &RecipientMismatchError{Expected: expectedRecipient, Got: event.To}
	}

	symbol := UnknownTokenSymbol
	if token, ok := v.registry.TokenByAddress(network, event.Asset); ok {
		symbol = token.Symbol
	}

	v.logger.Info("inbound payment verified",
		"network", network,
		"txHash", txHash,
		"amount", event.Value.String(),
		"token", symbol)

	return &InboundTransfer{
		To:           event.To,
		Amount:       event.Value,
		TokenAddress: event.Asset,
		TokenSymbol:  symbol,
	}, nil
}
