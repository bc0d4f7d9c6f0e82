package wallet

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientFunds is returned when the signing account lacks token
// balance or native gas for a transfer.
var ErrInsufficientFunds = errors.New("insufficient funds for transfer or gas")

// BroadcastError wraps a network or RPC failure while submitting a transaction
type BroadcastError struct {
	Network string
	Err     error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed on %s: %v", e.Network, e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// ConfirmationTimeoutError is returned when a broadcast transaction did not
// confirm within the wait window. The transaction may still confirm later:
// the outcome is unknown, callers must re-query by hash and never resubmit.
type ConfirmationTimeoutError struct {
	TxHash  string
	Timeout time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed within %s (outcome unknown, re-query by hash)", e.TxHash, e.Timeout)
}

// RevertError is returned when a transaction confirmed with failure status
type RevertError struct {
	TxHash string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("transaction %s reverted on chain", e.TxHash)
}
