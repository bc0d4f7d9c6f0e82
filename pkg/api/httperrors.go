package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AgentGatePay/TX/pkg/chains"
	"github.com/AgentGatePay/TX/pkg/hubclient"
	"github.com/AgentGatePay/TX/pkg/verifier"
	"github.com/AgentGatePay/TX/pkg/wallet"
)

// Machine-readable error codes surfaced in error bodies
const (
	CodeValidationError     = "validation_error"
	CodeUnauthorized        = "unauthorized"
	CodeNotConfigured       = "not_configured"
	CodeUnsupportedChain    = "unsupported_chain"
	CodeUnsupportedToken    = "unsupported_token"
	CodeTransactionNotFound = "transaction_not_found"
	CodeNoTransferEvent     = "no_transfer_event"
	CodeRecipientMismatch   = "recipient_mismatch"
	CodeInsufficientFunds   = "insufficient_funds"
	CodeBroadcastFailed     = "broadcast_failed"
	CodeConfirmationTimeout = "confirmation_timeout"
	CodeOnChainRevert       = "on_chain_revert"
	CodeAuthUnavailable     = "auth_unavailable"
	CodeConfigFetchFailed   = "config_fetch_failed"
	CodeConfigUnverified    = "config_unverified"
	CodeNotFound            = "not_found"
	CodeGone                = "gone"
	CodeTransactionFailed   = "transaction_failed"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError emits the JSON error envelope: a machine-readable code and a
// human-readable message, plus any extra context fields.
func writeError(w http.ResponseWriter, status int, code, message string, extra map[string]any) {
	body := map[string]any{
		"error": message,
		"code":  code,
	}
	for key, value := range extra {
		body[key] = value
	}
	writeJSON(w, status, body)
}

// writeDomainError converts a component error into its HTTP representation.
// Every chain or network failure surfaces here with its message; nothing is
// swallowed and nothing is retried.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		unsupportedChain *chains.UnsupportedNetworkError
		unsupportedToken *chains.UnsupportedTokenError
		mismatch         *verifier.RecipientMismatchError
		broadcast        *wallet.BroadcastError
		timeout          *wallet.ConfirmationTimeoutError
		revert           *wallet.RevertError
	)

	switch {
	case errors.As(err, &unsupportedChain):
		writeError(w, http.StatusBadRequest, CodeUnsupportedChain, err.Error(), map[string]any{
			"supported": unsupportedChain.Supported,
		})
	case errors.As(err, &unsupportedToken):
		extra := map[string]any{}
		if len(unsupportedToken.Supported) > 0 {
			extra["supported"] = unsupportedToken.Supported
		}
		writeError(w, http.StatusBadRequest, CodeUnsupportedToken, err.Error(), extra)
	case errors.Is(err, verifier.ErrTransactionNotFound):
		writeError(w, http.StatusBadRequest, CodeTransactionNotFound, "Transaction not confirmed yet or invalid tx_hash", nil)
	case errors.Is(err, verifier.ErrNoTransferEvent):
		writeError(w, http.StatusBadRequest, CodeNoTransferEvent, err.Error(), nil)
	case errors.As(err, &mismatch):
		writeError(w, http.StatusBadRequest, CodeRecipientMismatch, "Payment not sent to gateway", map[string]any{
			"expected": mismatch.Expected.Hex(),
			"received": mismatch.Got.Hex(),
		})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, CodeInsufficientFunds, "Wallet does not have enough tokens or native balance for gas", nil)
	case errors.As(err, &timeout):
		writeError(w, http.StatusInternalServerError, CodeConfirmationTimeout, err.Error(), map[string]any{
			"txHash": timeout.TxHash,
		})
	case errors.As(err, &revert):
		writeError(w, http.StatusInternalServerError, CodeOnChainRevert, err.Error(), map[string]any{
			"txHash": revert.TxHash,
		})
	case errors.As(err, &broadcast):
		writeError(w, http.StatusInternalServerError, CodeBroadcastFailed, err.Error(), nil)
	case errors.Is(err, hubclient.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)
	case errors.Is(err, hubclient.ErrAuthUnavailable):
		writeError(w, http.StatusServiceUnavailable, CodeAuthUnavailable, err.Error(), nil)
	case errors.Is(err, hubclient.ErrConfigUnverified):
		writeError(w, http.StatusBadGateway, CodeConfigUnverified, err.Error(), nil)
	case errors.Is(err, hubclient.ErrConfigFetchFailed):
		writeError(w, http.StatusBadGateway, CodeConfigFetchFailed, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, CodeTransactionFailed, err.Error(), nil)
	}
}
