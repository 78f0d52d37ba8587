package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/api/rest"
	"github.com/digiswap/stats-api/internal/api/server"
	"github.com/digiswap/stats-api/internal/bills"
	"github.com/digiswap/stats-api/internal/chain"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/freshness"
	"github.com/digiswap/stats-api/internal/gateway/bitquery"
	"github.com/digiswap/stats-api/internal/gateway/subgraph"
	"github.com/digiswap/stats-api/internal/logger"
	"github.com/digiswap/stats-api/internal/multicall"
	"github.com/digiswap/stats-api/internal/stats"
	"github.com/digiswap/stats-api/internal/store"
	"github.com/digiswap/stats-api/internal/store/schema"
	"github.com/digiswap/stats-api/internal/treasury"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting DigiSwap stats API")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := db.AutoMigrate(&schema.Snapshot{}, &schema.Bill{}, &schema.TreasuryHistory{}); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database schema", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Initialize store and adapters
	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	httpClient := adapter.NewHTTPClient(30 * time.Second)

	// Chain clients and multicall
	clients := chain.NewClients(cfg.Chains, adapter.NewEthClientDialer(), chain.NewRandomPicker())
	defer clients.Close()
	caller := multicall.NewCaller(clients, cfg.Chains)

	// Shared worker pool for snapshot recomputation and bill resolution
	pool := pond.NewPool(cfg.Worker.PoolSize, pond.WithQueueSize(cfg.Worker.QueueSize))
	defer pool.StopAndWait()

	// Gateways and engines
	lists := stats.NewLists(httpClient, cfg.Lists)
	subgraphGateway := subgraph.NewGateway(httpClient, jsonAdapter, cfg.Chains)
	bitqueryGateway := bitquery.NewGateway(httpClient, jsonAdapter, cfg.Bitquery)
	group := freshness.NewGroup(dataStore, clock, pool, cfg.Freshness)

	statsEngine := stats.NewEngine(cfg.Chains, domain.ChainBSC, caller, clock, pool, group, lists, subgraphGateway, bitqueryGateway)
	treasuryEngine := treasury.NewEngine(cfg.Chains, domain.ChainBSC, caller, clock, group, lists, subgraphGateway, dataStore)
	billService := bills.NewService(cfg.Chains, clients, caller, clock, jsonAdapter, dataStore, cfg.Lists, pool)

	// Resolve new bills as they are minted; requests fall back to on-demand
	// resolution when the subscription is unavailable
	if err := billService.Listen(ctx); err != nil {
		logger.WarnCtx(ctx, "Failed to subscribe to bill mint events", zap.Error(err))
	}

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Create and start server
	srv := server.New(serverConfig, rest.NewHandler(statsEngine, treasuryEngine, billService))

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
