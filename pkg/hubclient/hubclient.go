// Package hubclient talks to the AgentGatePay hub, the external authority for
// caller authorization and commission configuration. Commission parameters are
// never accepted from callers; they come from here or from local configuration.
package hubclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AgentGatePay/TX/pkg/split"
	"github.com/AgentGatePay/TX/pkg/utils"
)

// DefaultHubURL is the default URL for the AgentGatePay hub
const DefaultHubURL = "https://hub.agentgatepay.com"

// APIKeyHeader carries the caller's key on hub requests
const APIKeyHeader = "x-api-key"

var (
	// ErrUnauthorized is returned on key mismatch or failed remote verification
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthUnavailable is returned when the hub cannot be reached for an auth check
	ErrAuthUnavailable = errors.New("authorization service unavailable")

	// ErrConfigFetchFailed is returned when the commission endpoint is
	// unreachable or returns a malformed payload.
	ErrConfigFetchFailed = errors.New("failed to fetch commission config")

	// ErrConfigUnverified is returned when the hub's commission payload is not
	// marked verified; an unverified payload must never drive a transfer.
	ErrConfigUnverified = errors.New("commission config not verified by hub")
)

// CommissionConfig is the hub-verified commission destination and rate
type CommissionConfig struct {
	Address  common.Address
	RateBips int64
}

type identityResponse struct {
	Valid bool   `json:"valid"`
	Owner string `json:"owner,omitempty"`
}

type commissionResponse struct {
	CommissionAddress  string `json:"commission_address"`
	CommissionRateBips int64  `json:"commission_rate_bips"`
	Verified           bool   `json:"verified"`
}

// Client is the hub API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	ownerKey   string
	allowOpen  bool
	logger     *slog.Logger
}

// NewClient creates a hub client. ownerKey is the single key callers must
// present; when it is empty every request is denied unless allowOpen was set
// explicitly (the permissive fallback is opt-in, never the default).
func NewClient(baseURL, ownerKey string, allowOpen bool, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultHubURL
	}
	if err := utils.ValidateHubURL(baseURL); err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: utils.CreateHTTPClientWithTimeouts(),
		ownerKey:   ownerKey,
		allowOpen:  allowOpen,
		logger:     logger,
	}, nil
}

// ValidateKey checks a caller-supplied API key: it must match the owner key,
// and the hub's identity endpoint must still consider it valid.
func (c *Client) ValidateKey(ctx context.Context, key string) error {
	if c.ownerKey == "" {
		if c.allowOpen {
			c.logger.Warn("owner API key not configured and open access enabled, skipping authorization")
			return nil
		}
		return fmt.Errorf("%w: owner API key not configured", ErrUnauthorized)
	}

	if key == "" || key != c.ownerKey {
		return ErrUnauthorized
	}

	headers := map[string]string{APIKeyHeader: key}
	url := fmt.Sprintf("%s/api/v1/auth/me", c.baseURL)

	var identity identityResponse
	if err := httpRequest(ctx, c.httpClient, http.MethodGet, url, nil, headers, &identity); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && (httpErr.IsUnauthorized() || httpErr.IsForbidden()) {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	if !identity.Valid {
		return ErrUnauthorized
	}

	return nil
}

// CommissionConfig fetches the commission destination and rate for a validated
// caller. The payload is rejected unless the hub marked it verified.
func (c *Client) CommissionConfig(ctx context.Context, key string) (*CommissionConfig, error) {
	headers := map[string]string{APIKeyHeader: key}
	url := fmt.Sprintf("%s/api/v1/commission/config", c.baseURL)

	var payload commissionResponse
	if err := httpRequest(ctx, c.httpClient, http.MethodGet, url, nil, headers, &payload); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && (httpErr.IsUnauthorized() || httpErr.IsForbidden()) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigFetchFailed, err)
	}

	if !payload.Verified {
		return nil, ErrConfigUnverified
	}

	if !common.IsHexAddress(payload.CommissionAddress) {
		return nil, fmt.Errorf("%w: invalid commission address %q", ErrConfigFetchFailed, payload.CommissionAddress)
	}
	if payload.CommissionRateBips <= 0 || payload.CommissionRateBips >= split.BipsDenominator {
		return nil, fmt.Errorf("%w: commission rate out of range: %d bips", ErrConfigFetchFailed, payload.CommissionRateBips)
	}

	return &CommissionConfig{
		Address:  common.HexToAddress(payload.CommissionAddress),
		RateBips: payload.CommissionRateBips,
	}, nil
}
