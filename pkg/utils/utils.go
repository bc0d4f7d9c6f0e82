package utils

import (
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/AgentGatePay/TX/pkg/constants"
)

// CreateHTTPClientWithTimeouts builds the HTTP client used for hub requests
func CreateHTTPClientWithTimeouts() *http.Client {
	return &http.Client{
		Timeout: constants.HubTimeout,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
			ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
			ExpectContinueTimeout: constants.ExpectContinueTimeout,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // Disable redirects to prevent redirect-based SSRF
		},
	}
}

// ValidateHubURL validates that a hub URL is secure.
// Returns error if the URL doesn't use HTTPS (except localhost for testing).
func ValidateHubURL(url string) error {
	if !strings.HasPrefix(url, "https://") {
		// Allow http://localhost and http://127.0.0.1 for testing
		if strings.HasPrefix(url, "http://localhost") ||
			strings.HasPrefix(url, "http://127.0.0.1") ||
			strings.HasPrefix(url, "http://[::1]") {
			return nil
		}
		return fmt.Errorf("hub URL must use HTTPS: %s", url)
	}
	return nil
}

// FormatUnits renders an atomic token amount as a decimal string using the
// token's decimal count, with trailing fractional zeros trimmed.
// FormatUnits(15000000, 6) == "15", FormatUnits(14925000, 6) == "14.925".
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	sign := ""
	abs := new(big.Int).Abs(amount)
	if amount.Sign() < 0 {
		sign = "-"
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%0*s", decimals, frac.String()), "0")
	return sign + whole.String() + "." + fracStr
}
