// Package config loads the service configuration from the environment.
// A .env file is honored when present; real environment variables win.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/AgentGatePay/TX/pkg/constants"
	"github.com/AgentGatePay/TX/pkg/split"
)

// rpcOverrideEnv maps network name -> env var carrying its RPC URL override
var rpcOverrideEnv = map[string]string{
	constants.NetworkBase:     "BASE_RPC",
	constants.NetworkEthereum: "ETHEREUM_RPC",
	constants.NetworkPolygon:  "POLYGON_RPC",
	constants.NetworkArbitrum: "ARBITRUM_RPC",
}

// Config is the immutable service configuration, parsed once at startup
type Config struct {
	Port string

	// PrivateKey signs direct transfers; the service refuses to start without it.
	PrivateKey string

	// AuthToken optionally gates /sign-and-send with a bearer token
	AuthToken string

	// Gateway payment routing
	GatewayPrivateKey  string
	GatewayWallet      common.Address
	CommissionWallet   common.Address
	CommissionRateBips int64

	// Hub (remote authority) for /sign-payment
	HubURL      string
	OwnerAPIKey string

	// AllowUnauthenticated opts into open access on /sign-payment when no
	// owner API key is configured. Deny is the default.
	AllowUnauthenticated bool

	// RPCOverrides maps network name -> comma-separated RPC URLs
	RPCOverrides map[string]string
}

// GatewayConfigured reports whether gateway payment routing can run
func (c *Config) GatewayConfigured() bool {
	return c.GatewayPrivateKey != ""
}

// CommissionWalletConfigured reports whether a local commission destination is set
func (c *Config) CommissionWalletConfigured() bool {
	return c.CommissionWallet != (common.Address{})
}

// Load reads the environment into a Config. The signing key is mandatory;
// every other gap is reported as a startup warning, not an error.
func Load(logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Missing .env files are fine, the environment may be set directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 envOr("PORT", "3000"),
		PrivateKey:           os.Getenv("PRIVATE_KEY"),
		AuthToken:            os.Getenv("AUTH_TOKEN"),
		GatewayPrivateKey:    os.Getenv("GATEWAY_PRIVATE_KEY"),
		HubURL:               os.Getenv("HUB_URL"),
		OwnerAPIKey:          os.Getenv("OWNER_API_KEY"),
		AllowUnauthenticated: parseBool(os.Getenv("ALLOW_UNAUTHENTICATED")),
		CommissionRateBips:   constants.DefaultCommissionRateBips,
		RPCOverrides:         make(map[string]string),
	}

	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("PRIVATE_KEY environment variable not set")
	}

	if raw := os.Getenv("COMMISSION_RATE_BIPS"); raw != "" {
		bips, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || bips <= 0 || bips >= split.BipsDenominator {
			return nil, fmt.Errorf("COMMISSION_RATE_BIPS must be an integer in (0, %d), got %q", split.BipsDenominator, raw)
		}
		cfg.CommissionRateBips = bips
	}

	cfg.GatewayWallet = addressOrWarn(logger, "GATEWAY_WALLET")
	cfg.CommissionWallet = addressOrWarn(logger, "COMMISSION_WALLET")

	for network, envName := range rpcOverrideEnv {
		if value := os.Getenv(envName); value != "" {
			cfg.RPCOverrides[network] = value
		}
	}

	if !cfg.GatewayConfigured() {
		logger.Warn("GATEWAY_PRIVATE_KEY not set, gateway payment routing disabled")
	}
	if !cfg.CommissionWalletConfigured() {
		logger.Warn("COMMISSION_WALLET not set, gateway payment routing disabled")
	}
	if cfg.OwnerAPIKey == "" {
		logger.Warn("OWNER_API_KEY not set, /sign-payment requests will be denied",
			"allowUnauthenticated", cfg.AllowUnauthenticated)
	}
	if cfg.AuthToken == "" {
		logger.Warn("AUTH_TOKEN not set, /sign-and-send accepts unauthenticated requests")
	}

	return cfg, nil
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}

// addressOrWarn reads an optional address variable. A malformed value is
// treated as unset so funds can never route to a mistyped destination.
func addressOrWarn(logger *slog.Logger, envName string) common.Address {
	raw := os.Getenv(envName)
	if raw == "" {
		return common.Address{}
	}
	if !common.IsHexAddress(raw) {
		logger.Warn("ignoring malformed address", "env", envName, "value", raw)
		return common.Address{}
	}
	return common.HexToAddress(raw)
}
