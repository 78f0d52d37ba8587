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
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/digiswap/stats-api/internal/adapter"
	"github.com/digiswap/stats-api/internal/chain"
	"github.com/digiswap/stats-api/internal/config"
	"github.com/digiswap/stats-api/internal/domain"
	"github.com/digiswap/stats-api/internal/freshness"
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
	cfg, err := config.LoadBackfillerConfig(*configFile, *envPath)
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
			"service": "backfiller",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting treasury history backfiller")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	if err := db.AutoMigrate(&schema.Snapshot{}, &schema.TreasuryHistory{}); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database schema", zap.Error(err))
	}

	// Initialize store and adapters
	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	httpClient := adapter.NewHTTPClient(30 * time.Second)

	// Chain clients and multicall
	clients := chain.NewClients(cfg.Chains, adapter.NewEthClientDialer(), chain.NewRandomPicker())
	defer clients.Close()
	caller := multicall.NewCaller(clients, cfg.Chains)

	// Worker pool for snapshot recomputation
	pool := pond.NewPool(cfg.Worker.PoolSize, pond.WithQueueSize(cfg.Worker.QueueSize))
	defer pool.StopAndWait()

	// Treasury engine
	lists := stats.NewLists(httpClient, cfg.Lists)
	subgraphGateway := subgraph.NewGateway(httpClient, jsonAdapter, cfg.Chains)
	group := freshness.NewGroup(dataStore, clock, pool, cfg.Freshness)
	treasuryEngine := treasury.NewEngine(cfg.Chains, domain.ChainBSC, caller, clock, group, lists, subgraphGateway, dataStore)

	backfill := func() {
		if err := treasuryEngine.Backfill(ctx); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("history backfill failed: %w", err))
		}
	}
	refresh := func() {
		// Reading the snapshot claims and recomputes it when stale, which
		// keeps the persisted treasury valuation warm between backfills
		treasuryEngine.Treasury(ctx)
		if err := treasuryEngine.RefreshToday(ctx); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("current day history refresh failed: %w", err))
		}
	}

	// Immediate pass before the schedule kicks in
	backfill()
	refresh()

	// Start cron scheduler
	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.BackfillSchedule, backfill); err != nil {
		logger.FatalCtx(ctx, "Invalid backfill schedule", zap.Error(err), zap.String("schedule", cfg.BackfillSchedule))
	}
	if _, err := scheduler.AddFunc(cfg.RefreshSchedule, refresh); err != nil {
		logger.FatalCtx(ctx, "Invalid refresh schedule", zap.Error(err), zap.String("schedule", cfg.RefreshSchedule))
	}
	scheduler.Start()
	logger.InfoCtx(ctx, "Scheduler started",
		zap.String("backfill_schedule", cfg.BackfillSchedule),
		zap.String("refresh_schedule", cfg.RefreshSchedule),
	)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	// Let an in-flight run finish before exiting
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for scheduled jobs to finish")
	}

	logger.Info("Backfiller stopped")
}
