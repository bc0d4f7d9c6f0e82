// Package api exposes the HTTP surface of the signing service: health and
// wallet introspection, direct transfer signing, gateway payment routing,
// and hub-authorized merchant payments.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AgentGatePay/TX/pkg/chains"
	"github.com/AgentGatePay/TX/pkg/config"
	"github.com/AgentGatePay/TX/pkg/hubclient"
	"github.com/AgentGatePay/TX/pkg/verifier"
	"github.com/AgentGatePay/TX/pkg/wallet"
)

// TransferExecutor signs and broadcasts ERC-20 transfers from a single key.
// *wallet.Signer is the production implementation.
type TransferExecutor interface {
	Address() common.Address
	Transfer(ctx context.Context, params wallet.TransferParams) (*wallet.TransferResult, error)
	TransferPair(ctx context.Context, first, second wallet.TransferParams) (*wallet.TransferResult, *wallet.TransferResult, error)
}

// InboundVerifier proves that an on-chain transfer actually paid a wallet.
type InboundVerifier interface {
	VerifyInbound(ctx context.Context, txHash, network string, expectedRecipient common.Address) (*verifier.InboundTransfer, error)
}

// Hub is the authority for merchant API keys and commission configuration.
type Hub interface {
	ValidateKey(ctx context.Context, key string) error
	CommissionConfig(ctx context.Context, key string) (*hubclient.CommissionConfig, error)
}

// ChainHealth checks RPC reachability for one network. *evm.Client is the
// production implementation.
type ChainHealth interface {
	Network() string
	IsHealthy(ctx context.Context) bool
}

// Server wires the HTTP surface to the signing, verification, and hub
// components. It holds no mutable state of its own.
type Server struct {
	cfg      *config.Config
	registry *chains.Registry
	signer   TransferExecutor
	gateway  TransferExecutor
	verifier InboundVerifier
	hub      Hub
	health   []ChainHealth
	logger   *slog.Logger
	metrics  *Metrics
}

// NewServer builds a Server. gateway may be nil when no gateway key is
// configured; the gateway endpoints then report not-configured errors.
// health checkers may be empty; gateway health then omits RPC reachability.
func NewServer(
	cfg *config.Config,
	registry *chains.Registry,
	signer TransferExecutor,
	gateway TransferExecutor,
	inbound InboundVerifier,
	hub Hub,
	health []ChainHealth,
	logger *slog.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		signer:   signer,
		gateway:  gateway,
		verifier: inbound,
		hub:      hub,
		health:   health,
		logger:   logger,
		metrics:  NewMetrics(),
	}
}

// Handler assembles the chi router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/gateway/health", s.handleGatewayHealth)
	r.Get("/wallet", s.handleWallet)
	r.Get("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}).ServeHTTP)

	r.Post("/sign-and-send", s.handleSignAndSend)
	r.Post("/gateway-route-payment", s.handleGatewayRoutePayment)
	r.Post("/sign-payment", s.handleSignPayment)
	r.Post("/sign", s.handleDeprecatedSign)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	return r
}

// requestLogger emits one structured line per request and feeds the
// Prometheus request counters.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}

		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
