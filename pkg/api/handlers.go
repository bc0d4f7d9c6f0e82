package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AgentGatePay/TX/pkg/chains"
	"github.com/AgentGatePay/TX/pkg/constants"
	"github.com/AgentGatePay/TX/pkg/hubclient"
	"github.com/AgentGatePay/TX/pkg/split"
	"github.com/AgentGatePay/TX/pkg/utils"
	"github.com/AgentGatePay/TX/pkg/wallet"
)

// maxRequestBodySize caps inbound JSON bodies
const maxRequestBodySize = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"service":            constants.ServiceName,
		"version":            constants.ServiceVersion,
		"configured":         s.signer != nil,
		"gateway_configured": s.gateway != nil,
		"supported_chains":   s.registry.SupportedNetworks(),
		"supported_tokens":   s.registry.SupportedTokens(),
	})
}

func (s *Server) handleGatewayHealth(w http.ResponseWriter, r *http.Request) {
	commissionWallet := "NOT_SET"
	if s.cfg.CommissionWalletConfigured() {
		commissionWallet = s.cfg.CommissionWallet.Hex()
	}
	gatewayWallet := "NOT_SET"
	if s.cfg.GatewayWallet != (common.Address{}) {
		gatewayWallet = s.cfg.GatewayWallet.Hex()
	}

	body := map[string]any{
		"status":  "healthy",
		"service": "Gateway Payment Router",
		"version": constants.ServiceVersion,
		"config": map[string]any{
			"commission_rate":    formatBips(s.cfg.CommissionRateBips),
			"commission_wallet":  commissionWallet,
			"gateway_wallet":     gatewayWallet,
			"gateway_configured": s.gateway != nil,
			"supported_chains":   s.registry.SupportedNetworks(),
			"supported_tokens":   s.registry.SupportedTokens(),
		},
	}

	if len(s.health) > 0 {
		rpc := make(map[string]bool, len(s.health))
		for _, chk := range s.health {
			rpc[chk.Network()] = chk.IsHealthy(r.Context())
		}
		body["rpc"] = rpc
	}

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if s.signer == nil {
		writeError(w, http.StatusInternalServerError, CodeNotConfigured, "PRIVATE_KEY not configured", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": s.signer.Address().Hex(),
		"message": "Wallet configured successfully",
	})
}

type signAndSendRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Token  string `json:"token"`
	Chain  string `json:"chain"`
}

type signAndSendResponse struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"txHash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	Token       string `json:"token"`
	Chain       string `json:"chain"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     string `json:"gasUsed"`
	ExplorerURL string `json:"explorerUrl"`
}

// handleSignAndSend signs and broadcasts a single ERC-20 transfer from the
// service wallet, waiting for one confirmation before responding.
func (s *Server) handleSignAndSend(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthToken != "" {
		provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if provided != s.cfg.AuthToken {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized", nil)
			return
		}
	}

	var req signAndSendRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var missing []string
	for name, value := range map[string]string{
		"to": req.To, "amount": req.Amount, "token": req.Token, "chain": req.Chain,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Missing required parameters", map[string]any{
			"missing":  missing,
			"required": []string{"to", "amount", "token", "chain"},
		})
		return
	}

	chain, err := s.registry.Get(req.Chain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tokenAddress, err := s.registry.TokenAddress(req.Token, req.Chain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !common.IsHexAddress(req.To) {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid recipient address", nil)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid amount", nil)
		return
	}

	s.logger.Info("signing transaction",
		"from", s.signer.Address().Hex(),
		"to", req.To,
		"amount", req.Amount,
		"token", req.Token,
		"chain", req.Chain,
	)

	result, err := s.signer.Transfer(r.Context(), wallet.TransferParams{
		Network:   req.Chain,
		Token:     tokenAddress,
		Recipient: common.HexToAddress(req.To),
		Amount:    amount,
	})
	s.metrics.recordTransfer(req.Chain, err)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, signAndSendResponse{
		Success:     true,
		TxHash:      result.TxHash,
		From:        s.signer.Address().Hex(),
		To:          req.To,
		Amount:      req.Amount,
		Token:       req.Token,
		Chain:       req.Chain,
		BlockNumber: result.BlockNumber,
		GasUsed:     fmt.Sprintf("%d", result.GasUsed),
		ExplorerURL: chain.ExplorerTxURL(result.TxHash),
	})
}

type gatewayRouteRequest struct {
	TxHash       string `json:"tx_hash"`
	SellerWallet string `json:"seller_wallet"`
	Chain        string `json:"chain"`
}

type paymentLeg struct {
	Amount      string `json:"amount"`
	Percentage  string `json:"percentage"`
	TxHash      string `json:"tx_hash,omitempty"`
	Wallet      string `json:"wallet"`
	ExplorerURL string `json:"explorer_url,omitempty"`
	Status      string `json:"status"`
}

// handleGatewayRoutePayment verifies an inbound payment to the gateway wallet
// and forwards it as two transfers: commission first, then the seller's share.
// The seller leg is only attempted once the commission leg is confirmed.
func (s *Server) handleGatewayRoutePayment(w http.ResponseWriter, r *http.Request) {
	var req gatewayRouteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var missing []string
	for name, value := range map[string]string{
		"tx_hash": req.TxHash, "seller_wallet": req.SellerWallet, "chain": req.Chain,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Missing required fields", map[string]any{
			"missing":  missing,
			"required": []string{"tx_hash", "seller_wallet", "chain"},
		})
		return
	}

	if s.gateway == nil {
		writeError(w, http.StatusInternalServerError, CodeNotConfigured, "GATEWAY_PRIVATE_KEY not set", nil)
		return
	}
	if !s.cfg.CommissionWalletConfigured() {
		writeError(w, http.StatusInternalServerError, CodeNotConfigured, "COMMISSION_WALLET not set", nil)
		return
	}
	if s.cfg.GatewayWallet == (common.Address{}) {
		writeError(w, http.StatusInternalServerError, CodeNotConfigured, "GATEWAY_WALLET not set", nil)
		return
	}

	chain, err := s.registry.Get(req.Chain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !common.IsHexAddress(req.SellerWallet) {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid seller_wallet address", nil)
		return
	}

	inbound, err := s.verifier.VerifyInbound(r.Context(), req.TxHash, req.Chain, s.cfg.GatewayWallet)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	parts, err := split.Split(inbound.Amount, s.cfg.CommissionRateBips)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("payment verified, routing",
		"txHash", req.TxHash,
		"amount", inbound.Amount.String(),
		"token", inbound.TokenSymbol,
		"commission", parts.Commission.String(),
		"seller", parts.Merchant.String(),
	)

	sellerParams := wallet.TransferParams{
		Network:   req.Chain,
		Token:     inbound.TokenAddress,
		Recipient: common.HexToAddress(req.SellerWallet),
		Amount:    parts.Merchant,
	}

	// a dust total floors the commission to zero; a zero-value transfer
	// would be rejected by the signer, so the seller is paid directly
	skipCommission := parts.Commission.Sign() == 0

	var commissionResult, sellerResult *wallet.TransferResult
	if skipCommission {
		sellerResult, err = s.gateway.Transfer(r.Context(), sellerParams)
	} else {
		commissionResult, sellerResult, err = s.gateway.TransferPair(r.Context(),
			wallet.TransferParams{
				Network:   req.Chain,
				Token:     inbound.TokenAddress,
				Recipient: s.cfg.CommissionWallet,
				Amount:    parts.Commission,
			},
			sellerParams,
		)
	}
	s.metrics.recordTransfer(req.Chain, err)
	if err != nil {
		s.writeRoutingFailure(w, chain, req, parts, commissionResult, skipCommission, err)
		return
	}

	commissionLeg := paymentLeg{
		Amount:     parts.Commission.String(),
		Percentage: formatBips(s.cfg.CommissionRateBips),
		Wallet:     s.cfg.CommissionWallet.Hex(),
		Status:     "skipped",
	}
	if !skipCommission {
		commissionLeg.TxHash = commissionResult.TxHash
		commissionLeg.ExplorerURL = chain.ExplorerTxURL(commissionResult.TxHash)
		commissionLeg.Status = "collected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment routed successfully",
		"original_payment": map[string]any{
			"tx_hash":      req.TxHash,
			"amount":       inbound.Amount.String(),
			"explorer_url": chain.ExplorerTxURL(req.TxHash),
		},
		"commission": commissionLeg,
		"seller_payment": paymentLeg{
			Amount:      parts.Merchant.String(),
			Percentage:  formatBips(split.BipsDenominator - s.cfg.CommissionRateBips),
			TxHash:      sellerResult.TxHash,
			Wallet:      req.SellerWallet,
			ExplorerURL: chain.ExplorerTxURL(sellerResult.TxHash),
			Status:      "paid",
		},
		"summary": map[string]any{
			"total_received":       inbound.Amount.String(),
			"commission_collected": parts.Commission.String(),
			"seller_paid":          parts.Merchant.String(),
			"token":                inbound.TokenSymbol,
			"chain":                req.Chain,
		},
	})
}

// writeRoutingFailure reports a failed routing attempt. When the commission
// leg went through but the seller leg did not, the response names the failed
// step and carries the commission hash so the operator can reconcile; the
// seller leg has no hash because it was never broadcast or never confirmed.
func (s *Server) writeRoutingFailure(w http.ResponseWriter, chain *chains.ChainConfig, req gatewayRouteRequest, parts *split.Result, commissionResult *wallet.TransferResult, commissionSkipped bool, err error) {
	failedStep := "commission_transfer"
	commission := paymentLeg{
		Amount:     parts.Commission.String(),
		Percentage: formatBips(s.cfg.CommissionRateBips),
		Wallet:     s.cfg.CommissionWallet.Hex(),
		Status:     "failed",
	}
	if commissionSkipped {
		failedStep = "seller_transfer"
		commission.Status = "skipped"
	}
	if commissionResult != nil && commissionResult.TxHash != "" {
		commission.TxHash = commissionResult.TxHash
		commission.ExplorerURL = chain.ExplorerTxURL(commissionResult.TxHash)
	}
	if commissionResult != nil && commissionResult.Status == wallet.StatusConfirmed {
		failedStep = "seller_transfer"
		commission.Status = "collected"
	}

	status, code := failureStatusCode(err)

	writeJSON(w, status, map[string]any{
		"success":     false,
		"error":       "Gateway routing failed",
		"code":        code,
		"message":     err.Error(),
		"failed_step": failedStep,
		"commission":  commission,
		"seller_payment": paymentLeg{
			Amount:     parts.Merchant.String(),
			Percentage: formatBips(split.BipsDenominator - s.cfg.CommissionRateBips),
			Wallet:     req.SellerWallet,
			Status:     "not_sent",
		},
	})
}

type signPaymentRequest struct {
	MerchantAddress string `json:"merchant_address"`
	TotalAmount     string `json:"total_amount"`
	Token           string `json:"token"`
	Chain           string `json:"chain"`
}

// handleSignPayment splits a merchant payment per the hub's commission
// configuration and pays both parties from the service wallet. The caller's
// API key is validated before any other work.
func (s *Server) handleSignPayment(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get(hubclient.APIKeyHeader)
	if err := s.hub.ValidateKey(r.Context(), apiKey); err != nil {
		writeDomainError(w, err)
		return
	}

	var req signPaymentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	var missing []string
	for name, value := range map[string]string{
		"merchant_address": req.MerchantAddress, "total_amount": req.TotalAmount,
		"token": req.Token, "chain": req.Chain,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Missing required parameters", map[string]any{
			"missing":  missing,
			"required": []string{"merchant_address", "total_amount", "token", "chain"},
		})
		return
	}

	chain, err := s.registry.Get(req.Chain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tokenAddress, err := s.registry.TokenAddress(req.Token, req.Chain)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !common.IsHexAddress(req.MerchantAddress) {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid merchant_address", nil)
		return
	}
	total, ok := parseAmount(req.TotalAmount)
	if !ok {
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid total_amount", nil)
		return
	}

	commissionCfg, err := s.hub.CommissionConfig(r.Context(), apiKey)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	parts, err := split.Split(total, commissionCfg.RateBips)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.registry.Token(req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	merchantParams := wallet.TransferParams{
		Network:   req.Chain,
		Token:     tokenAddress,
		Recipient: common.HexToAddress(req.MerchantAddress),
		Amount:    parts.Merchant,
	}

	// zero commission from a dust total: only the merchant leg is sent
	skipCommission := parts.Commission.Sign() == 0

	var commissionResult, merchantResult *wallet.TransferResult
	if skipCommission {
		merchantResult, err = s.signer.Transfer(r.Context(), merchantParams)
	} else {
		commissionResult, merchantResult, err = s.signer.TransferPair(r.Context(),
			wallet.TransferParams{
				Network:   req.Chain,
				Token:     tokenAddress,
				Recipient: commissionCfg.Address,
				Amount:    parts.Commission,
			},
			merchantParams,
		)
	}
	s.metrics.recordTransfer(req.Chain, err)
	if err != nil {
		s.writePaymentFailure(w, chain, commissionCfg.RateBips, commissionResult, skipCommission, err)
		return
	}

	commissionLeg := map[string]any{
		"amount":     parts.Commission.String(),
		"amount_usd": utils.FormatUnits(parts.Commission, token.Decimals),
		"percentage": formatBips(commissionCfg.RateBips),
		"wallet":     commissionCfg.Address.Hex(),
		"status":     "skipped",
	}
	if !skipCommission {
		commissionLeg["tx_hash"] = commissionResult.TxHash
		commissionLeg["explorer_url"] = chain.ExplorerTxURL(commissionResult.TxHash)
		commissionLeg["status"] = "collected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Payment completed",
		"commission": commissionLeg,
		"merchant_payment": map[string]any{
			"amount":       parts.Merchant.String(),
			"amount_usd":   utils.FormatUnits(parts.Merchant, token.Decimals),
			"percentage":   formatBips(split.BipsDenominator - commissionCfg.RateBips),
			"tx_hash":      merchantResult.TxHash,
			"wallet":       req.MerchantAddress,
			"explorer_url": chain.ExplorerTxURL(merchantResult.TxHash),
			"status":       "paid",
		},
		"summary": map[string]any{
			"total":           parts.Total.String(),
			"total_usd":       utils.FormatUnits(parts.Total, token.Decimals),
			"commission_rate": formatBips(commissionCfg.RateBips),
			"token":           req.Token,
			"chain":           req.Chain,
		},
	})
}

func (s *Server) writePaymentFailure(w http.ResponseWriter, chain *chains.ChainConfig, rateBips int64, commissionResult *wallet.TransferResult, commissionSkipped bool, err error) {
	failedStep := "commission_transfer"
	if commissionSkipped {
		failedStep = "merchant_transfer"
	}
	var commissionHash, commissionURL string
	if commissionResult != nil && commissionResult.TxHash != "" {
		commissionHash = commissionResult.TxHash
		commissionURL = chain.ExplorerTxURL(commissionResult.TxHash)
	}
	if commissionResult != nil && commissionResult.Status == wallet.StatusConfirmed {
		failedStep = "merchant_transfer"
	}

	status, code := failureStatusCode(err)

	writeJSON(w, status, map[string]any{
		"success":     false,
		"error":       "Payment failed",
		"code":        code,
		"message":     err.Error(),
		"failed_step": failedStep,
		"commission": map[string]any{
			"tx_hash":      commissionHash,
			"explorer_url": commissionURL,
		},
	})
}

// handleDeprecatedSign keeps the retired sign-only endpoint addressable so
// old clients get a pointer to its replacement instead of a bare 404.
func (s *Server) handleDeprecatedSign(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusGone, CodeGone, "POST /sign has been retired; use POST /sign-and-send", map[string]any{
		"replacement": "POST /sign-and-send",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "Not found", map[string]any{
		"endpoints": endpointDirectory(),
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeNotFound, "Method not allowed", map[string]any{
		"endpoints": endpointDirectory(),
	})
}

func endpointDirectory() map[string]string {
	return map[string]string{
		"GET /health":                 "Health check",
		"GET /gateway/health":         "Gateway health",
		"GET /wallet":                 "Wallet info",
		"GET /metrics":                "Prometheus metrics",
		"POST /sign-and-send":         "Sign and broadcast transfer",
		"POST /gateway-route-payment": "Route payment with commission",
		"POST /sign-payment":          "Split and pay a merchant payment",
	}
}

// failureStatusCode maps a transfer error to its HTTP status and error code,
// matching the taxonomy writeDomainError applies to the same errors.
func failureStatusCode(err error) (int, string) {
	var (
		timeout *wallet.ConfirmationTimeoutError
		revert  *wallet.RevertError
	)
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusBadRequest, CodeInsufficientFunds
	case errors.As(err, &timeout):
		return http.StatusInternalServerError, CodeConfirmationTimeout
	case errors.As(err, &revert):
		return http.StatusInternalServerError, CodeOnChainRevert
	default:
		return http.StatusInternalServerError, CodeTransactionFailed
	}
}

// decodeBody parses the request body into dst, writing a validation error and
// returning false on malformed JSON. An empty body decodes as an empty object
// so field validation can list what is missing.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid JSON body", nil)
		return false
	}
	return true
}

// parseAmount parses a positive base-unit integer amount
func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, false
	}
	return amount, true
}

// formatBips renders a basis-point rate as a human percentage, e.g. 50 -> "0.5%"
func formatBips(bips int64) string {
	whole := bips / 100
	frac := bips % 100
	switch {
	case frac == 0:
		return fmt.Sprintf("%d%%", whole)
	case frac%10 == 0:
		return fmt.Sprintf("%d.%d%%", whole, frac/10)
	default:
		return fmt.Sprintf("%d.%02d%%", whole, frac)
	}
}
