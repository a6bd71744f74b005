package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	clog "cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dusd/api/handlers"
	"github.com/openalpha/dusd/api/middleware"
	"github.com/openalpha/dusd/api/types"
	"github.com/openalpha/dusd/api/websocket"
	"github.com/openalpha/dusd/app"
	"github.com/openalpha/dusd/metrics"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	wsServer   *websocket.Server
	config     *Config

	// Services
	service *KeeperService

	// Handlers
	accountHandler     *handlers.AccountHandler
	positionHandler    *handlers.PositionHandler
	liquidationHandler *handlers.LiquidationHandler

	// Rate limiter
	rateLimiter *middleware.RateLimiter
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool // For testing purposes

	// Push intervals for the websocket broadcaster
	BroadcastInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              8080,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		BroadcastInterval: time.Second,
	}
}

// NewServer creates an API server over a fresh in-memory engine
func NewServer(config *Config, genesis *app.GenesisConfig) (*Server, error) {
	service, err := NewKeeperService(clog.NewNopLogger(), genesis)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine service: %w", err)
	}
	return NewServerWithService(config, service), nil
}

// NewServerWithService creates an API server over an existing service
func NewServerWithService(config *Config, service *KeeperService) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	wsConfig := websocket.DefaultServerConfig()
	wsConfig.Port = config.Port

	s := &Server{
		config:      config,
		wsServer:    websocket.NewServer(wsConfig),
		service:     service,
		rateLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
	}

	service.SetHub(s.wsServer.GetHub())

	s.accountHandler = handlers.NewAccountHandler(service)
	s.positionHandler = handlers.NewPositionHandler(service)
	s.liquidationHandler = handlers.NewLiquidationHandler(service)

	return s
}

// routes assembles the handler tree with the middleware chain applied:
// CORS -> RateLimit -> Handler, with mutation quotas wrapped around the
// state-changing routes.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// mutation applies the per-account mutation quota to POST requests.
	// Reads on the same route pass through untouched.
	mutation := func(h http.HandlerFunc) http.Handler { return h }
	if !s.config.DisableRateLimit {
		limit := middleware.MutationRateLimitMiddleware(s.rateLimiter)
		mutation = func(h http.HandlerFunc) http.Handler {
			limited := limit(h)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					limited.ServeHTTP(w, r)
					return
				}
				h.ServeHTTP(w, r)
			})
		}
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/health", s.handleHealth)

	// Read-only engine state
	mux.HandleFunc("/v1/assets", s.accountHandler.HandleAssets)
	mux.HandleFunc("/v1/backing", s.accountHandler.HandleBacking)
	mux.HandleFunc("/v1/params", s.handleParams)
	mux.HandleFunc("/v1/accounts/", s.accountHandler.HandleAccount)

	// Position mutations (POST)
	mux.Handle("/v1/positions/deposit", mutation(s.positionHandler.HandleDeposit))
	mux.Handle("/v1/positions/mint", mutation(s.positionHandler.HandleMint))
	mux.Handle("/v1/positions/redeem", mutation(s.positionHandler.HandleRedeem))
	mux.Handle("/v1/positions/burn", mutation(s.positionHandler.HandleBurn))
	mux.Handle("/v1/positions/deposit-and-mint", mutation(s.positionHandler.HandleDepositAndMint))
	mux.Handle("/v1/positions/redeem-for-dusd", mutation(s.positionHandler.HandleRedeemForDusd))

	// Liquidations (GET list, POST execute)
	mux.Handle("/v1/liquidations", mutation(s.liquidationHandler.HandleLiquidations))
	mux.HandleFunc("/v1/liquidations/unsafe", s.liquidationHandler.HandleUnsafeAccounts)

	// Prometheus metrics
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket
	mux.HandleFunc("/ws", s.wsServer.GetHub().ServeWS)

	if s.config.DisableRateLimit {
		return corsMiddleware(mux)
	}
	return corsMiddleware(middleware.RateLimitMiddleware(s.rateLimiter)(mux))
}

// Start starts the API server
func (s *Server) Start() error {
	handler := s.routes()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	// Start WebSocket hub
	go s.wsServer.GetHub().Run()

	// Start the state broadcaster
	go s.runBroadcaster()

	log.Printf("API server starting on %s", addr)
	if s.config.DisableRateLimit {
		log.Printf("Rate limiting DISABLED (for testing)")
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleParams handles GET /v1/params
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params := s.service.App().DusdKeeper.Params()
	writeJSON(w, http.StatusOK, params)
}

// runBroadcaster periodically pushes oracle prices and unsafe-account
// health to websocket subscribers.
func (s *Server) runBroadcaster() {
	ticker := time.NewTicker(s.config.BroadcastInterval)
	defer ticker.Stop()

	hub := s.wsServer.GetHub()
	engine := s.service.App()

	for range ticker.C {
		_ = engine.RunQuery(func(ctx sdk.Context) error {
			// Oracle prices per registered feed
			for _, asset := range engine.DusdKeeper.RegisteredAssets() {
				price, err := engine.OracleKeeper.LatestPrice(ctx, asset.FeedID)
				if err != nil {
					continue
				}
				hub.UpdatePrice(asset.FeedID, &websocket.PriceMessage{
					FeedID:    asset.FeedID,
					Price:     price.Price.String(),
					Decimals:  price.Decimals,
					Timestamp: types.NowMillis(),
				})
				metrics.GetCollector().UpdateOraclePrice(asset.FeedID, priceFloat(price.Price, price.Decimals))
			}

			// Health of every account currently below the threshold
			unsafeAccounts, err := engine.DusdKeeper.GetUnsafeAccounts(ctx)
			if err != nil {
				return nil
			}
			for _, address := range unsafeAccounts {
				summary, err := engine.DusdKeeper.GetAccountSummary(ctx, address)
				if err != nil {
					continue
				}
				hub.UpdateHealth(address, &websocket.HealthMessage{
					Account:            address,
					HealthFactor:       summary.HealthFactor.String(),
					CollateralValueUsd: summary.CollateralValueUsd.String(),
					DebtDusd:           summary.Debt.String(),
					Unsafe:             true,
					Timestamp:          types.NowMillis(),
				})
			}
			return nil
		})
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Account-Address")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
