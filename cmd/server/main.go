// The server command runs the transaction signing service: an HTTP API that
// signs and broadcasts ERC-20 transfers and routes incoming payments into
// commission and merchant legs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AgentGatePay/TX/pkg/api"
	"github.com/AgentGatePay/TX/pkg/chains"
	"github.com/AgentGatePay/TX/pkg/chains/evm"
	"github.com/AgentGatePay/TX/pkg/config"
	"github.com/AgentGatePay/TX/pkg/constants"
	"github.com/AgentGatePay/TX/pkg/hubclient"
	"github.com/AgentGatePay/TX/pkg/verifier"
	"github.com/AgentGatePay/TX/pkg/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}

	registry := chains.NewRegistry(cfg.RPCOverrides)

	signerChains := make(map[string]wallet.Chain)
	receiptSources := make(map[string]verifier.ReceiptSource)
	var chainHealth []api.ChainHealth
	for _, network := range registry.SupportedNetworks() {
		chainCfg, err := registry.Get(network)
		if err != nil {
			return err
		}
		client := evm.NewClient(chainCfg)
		signerChains[network] = client
		receiptSources[network] = client
		chainHealth = append(chainHealth, client)
	}

	signer, err := wallet.NewSigner(cfg.PrivateKey, signerChains, logger)
	if err != nil {
		return err
	}

	var gateway api.TransferExecutor
	if cfg.GatewayConfigured() {
		gatewaySigner, err := wallet.NewSigner(cfg.GatewayPrivateKey, signerChains, logger)
		if err != nil {
			logger.Error("invalid GATEWAY_PRIVATE_KEY, gateway payment routing disabled", "error", err)
		} else {
			gateway = gatewaySigner
		}
	}

	inbound := verifier.NewVerifier(receiptSources, registry, logger)

	hub, err := hubclient.NewClient(cfg.HubURL, cfg.OwnerAPIKey, cfg.AllowUnauthenticated, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, registry, signer, gateway, inbound, hub, chainHealth, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting",
		"service", constants.ServiceName,
		"version", constants.ServiceVersion,
		"port", cfg.Port,
		"wallet", signer.Address().Hex(),
		"gatewayConfigured", gateway != nil,
		"commissionRateBips", cfg.CommissionRateBips,
		"chains", registry.SupportedNetworks(),
		"tokens", registry.SupportedTokens(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
