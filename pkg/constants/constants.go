package constants

import "time"

const (
	ServiceName    = "AgentGatePay Transaction Signing Service"
	ServiceVersion = "1.1.0"
)

const (
	DelayBetweenRPCCalls      = 200              // delay in milliseconds between RPC calls
	TransactionReceiptTimeout = 2 * time.Second  // timeout for a single receipt fetch
	ConfirmationTimeout       = 60 * time.Second // how long to wait for a broadcast transfer to confirm
	ConfirmationPollInterval  = 2 * time.Second  // receipt polling interval while waiting for confirmation
	HubTimeout                = 30 * time.Second // timeout for hub requests
	TLSHandshakeTimeout       = 10 * time.Second // timeout for TLS handshake
	ResponseHeaderTimeout     = 20 * time.Second // timeout for response header
	ExpectContinueTimeout     = 1 * time.Second  // timeout for expect continue
	MaxResponseBodySize       = 10 * 1024 * 1024 // maximum response body size in bytes (10MB)
)

// FallbackGasLimit is used when gas estimation fails for an ERC-20 transfer.
const FallbackGasLimit = 100_000

// DefaultCommissionRateBips is the gateway commission rate in basis points (0.5%).
const DefaultCommissionRateBips = 50

// Network names
const (
	NetworkBase     = "base"
	NetworkEthereum = "ethereum"
	NetworkPolygon  = "polygon"
	NetworkArbitrum = "arbitrum"
)

// mapping from network name to numeric chain ID
var NetworkToChainID = map[string]int64{
	NetworkBase:     8453,
	NetworkEthereum: 1,
	NetworkPolygon:  137,
	NetworkArbitrum: 42161,
}

var DefaultRPCEndpoints = map[string][]string{
	NetworkBase:     {"https://mainnet.base.org"},
	NetworkEthereum: {"https://cloudflare-eth.com"},
	NetworkPolygon:  {"https://polygon-rpc.com"},
	NetworkArbitrum: {"https://arb1.arbitrum.io/rpc"},
}

var ExplorerBaseURLs = map[string]string{
	NetworkBase:     "https://basescan.org",
	NetworkEthereum: "https://etherscan.io",
	NetworkPolygon:  "https://polygonscan.com",
	NetworkArbitrum: "https://arbiscan.io",
}

// Token symbols
const (
	TokenUSDC = "USDC"
	TokenUSDT = "USDT"
	TokenDAI  = "DAI"
)

var TokenDecimals = map[string]int{
	TokenUSDC: 6,
	TokenUSDT: 6,
	TokenDAI:  18,
}

// TokenContracts maps token symbol -> network -> ERC-20 contract address.
// A token absent from a network's inner map is not supported there.
var TokenContracts = map[string]map[string]string{
	TokenUSDC: {
		NetworkBase:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		NetworkEthereum: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		NetworkPolygon:  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		NetworkArbitrum: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
	},
	TokenUSDT: {
		NetworkEthereum: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		NetworkPolygon:  "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
		NetworkArbitrum: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
	},
	TokenDAI: {
		NetworkBase:     "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb",
		NetworkEthereum: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		NetworkPolygon:  "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063",
		NetworkArbitrum: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1",
	},
}
