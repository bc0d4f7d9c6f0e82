package evm

import "fmt"

// ErrReceiptNotFound is returned when a transaction has no receipt yet
// (not mined, or the hash is unknown to the node).
var ErrReceiptNotFound = fmt.Errorf("transaction receipt not found")

// RPCError represents an RPC-related error
type RPCError struct {
	Network string
	Err     error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error on %s: %v", e.Network, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
