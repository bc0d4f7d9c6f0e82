package chains

import (
	"fmt"
	"strings"
)

// UnsupportedNetworkError is returned when a network is not configured
type UnsupportedNetworkError struct {
	Network   string
	Supported []string
}

func (e *UnsupportedNetworkError) Error() string {
	return fmt.Sprintf("unsupported chain: %s (supported: %s)", e.Network, strings.Join(e.Supported, ", "))
}

// UnsupportedTokenError is returned when a token symbol is unknown, or known
// but has no contract deployed on the requested network
type UnsupportedTokenError struct {
	Symbol    string
	Network   string
	Supported []string
}

func (e *UnsupportedTokenError) Error() string {
	if e.Network != "" {
		return fmt.Sprintf("%s not supported on %s", e.Symbol, e.Network)
	}
	return fmt.Sprintf("unsupported token: %s (supported: %s)", e.Symbol, strings.Join(e.Supported, ", "))
}
