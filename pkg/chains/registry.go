package chains

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AgentGatePay/TX/pkg/constants"
)

// ChainConfig describes one supported network. Built once at startup, read-only.
type ChainConfig struct {
	Name            string
	ChainID         int64
	RPCEndpoints    []string
	ExplorerBaseURL string
}

// ExplorerTxURL returns the block explorer link for a transaction hash
func (c *ChainConfig) ExplorerTxURL(txHash string) string {
	return c.ExplorerBaseURL + "/tx/" + txHash
}

// TokenConfig describes one supported ERC-20 token across networks.
type TokenConfig struct {
	Symbol            string
	Decimals          int
	ContractByNetwork map[string]common.Address
}

// Registry is the immutable chain and token lookup table. It is constructed
// once in main and passed explicitly to every component that needs it; unknown
// keys always produce an explicit error, never a default.
type Registry struct {
	chains map[string]*ChainConfig
	tokens map[string]*TokenConfig
}

// NewRegistry builds a registry from the built-in chain/token tables.
// rpcOverrides replaces the default endpoint list for the given networks
// (comma-separated URLs are supported, matching the env configuration surface).
func NewRegistry(rpcOverrides map[string]string) *Registry {
	r := &Registry{
		chains: make(map[string]*ChainConfig, len(constants.NetworkToChainID)),
		tokens: make(map[string]*TokenConfig, len(constants.TokenContracts)),
	}

	for network, chainID := range constants.NetworkToChainID {
		endpoints := constants.DefaultRPCEndpoints[network]
		if override, ok := rpcOverrides[network]; ok && override != "" {
			endpoints = splitEndpoints(override)
		}
		r.chains[network] = &ChainConfig{
			Name:            network,
			ChainID:         chainID,
			RPCEndpoints:    endpoints,
			ExplorerBaseURL: constants.ExplorerBaseURLs[network],
		}
	}

	for symbol, contracts := range constants.TokenContracts {
		token := &TokenConfig{
			Symbol:            symbol,
			Decimals:          constants.TokenDecimals[symbol],
			ContractByNetwork: make(map[string]common.Address, len(contracts)),
		}
		for network, addr := range contracts {
			token.ContractByNetwork[network] = common.HexToAddress(addr)
		}
		r.tokens[symbol] = token
	}

	return r
}

// Get retrieves the chain configuration for a network name
func (r *Registry) Get(network string) (*ChainConfig, error) {
	chain, ok := r.chains[network]
	if !ok {
		return nil, &UnsupportedNetworkError{Network: network, Supported: r.SupportedNetworks()}
	}
	return chain, nil
}

// Token retrieves the token configuration for a symbol
func (r *Registry) Token(symbol string) (*TokenConfig, error) {
	token, ok := r.tokens[symbol]
	if !ok {
		return nil, &UnsupportedTokenError{Symbol: symbol, Supported: r.SupportedTokens()}
	}
	return token, nil
}

// TokenAddress resolves a token symbol on a network to its contract address.
// The network must be supported and the token deployed there.
func (r *Registry) TokenAddress(symbol, network string) (common.Address, error) {
	if _, err := r.Get(network); err != nil {
		return common.Address{}, err
	}
	token, err := r.Token(symbol)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := token.ContractByNetwork[network]
	if !ok {
		return common.Address{}, &UnsupportedTokenError{Symbol: symbol, Network: network}
	}
	return addr, nil
}

// TokenByAddress reverse-resolves a contract address on a network to its
// configured token. Returns false when no configured token matches.
func (r *Registry) TokenByAddress(network string, addr common.Address) (*TokenConfig, bool) {
	for _, token := range r.tokens {
		if contract, ok := token.ContractByNetwork[network]; ok && contract == addr {
			return token, true
		}
	}
	return nil, false
}

// IsSupported checks if a network is supported
func (r *Registry) IsSupported(network string) bool {
	_, ok := r.chains[network]
	return ok
}

// SupportedNetworks returns all configured network names, sorted
func (r *Registry) SupportedNetworks() []string {
	networks := make([]string, 0, len(r.chains))
	for network := range r.chains {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	return networks
}

// SupportedTokens returns all configured token symbols, sorted
func (r *Registry) SupportedTokens() []string {
	symbols := make([]string, 0, len(r.tokens))
	for symbol := range r.tokens {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func splitEndpoints(raw string) []string {
	parts := strings.Split(raw, ",")
	endpoints := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			endpoints = append(endpoints, trimmed)
		}
	}
	return endpoints
}
