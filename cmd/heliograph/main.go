package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heliograph-labs/heliograph/internal/config"
	"github.com/heliograph-labs/heliograph/internal/decode"
	"github.com/heliograph-labs/heliograph/internal/idl"
	"github.com/heliograph-labs/heliograph/internal/indexer"
	indexerapi "github.com/heliograph-labs/heliograph/internal/indexer/api"
	"github.com/heliograph-labs/heliograph/internal/ledger"
	"github.com/heliograph-labs/heliograph/internal/migrations"
	"github.com/heliograph-labs/heliograph/internal/query"
	"github.com/heliograph-labs/heliograph/internal/server"
	"github.com/heliograph-labs/heliograph/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "heliograph.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	pollInterval, err := time.ParseDuration(cfg.Indexer.PollInterval)
	if err != nil || pollInterval <= 0 {
		slog.Error("Invalid indexer poll interval", "value", cfg.Indexer.PollInterval, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Ledger Access
	ledgerClient, err := ledger.NewRPCClient(
		cfg.Ledger.RPCURL,
		cfg.Ledger.ProgramID,
		cfg.Ledger.EffectiveRequestTimeout(),
	)
	if err != nil {
		slog.Error("Failed to initialize ledger client", "error", err)
		os.Exit(1)
	}

	schema, err := idl.Load(cfg.Ledger.IDLPath)
	if err != nil {
		slog.Error("Failed to load program schema", "path", cfg.Ledger.IDLPath, "error", err)
		os.Exit(1)
	}
	if schema == nil {
		slog.Warn("[Indexer] No program schema found, log-frame records will not decode",
			"path", cfg.Ledger.IDLPath)
	}

	decoder := decode.New(ledgerClient.ProgramID(), schema)

	// 4. Initialize Sync Engine
	commitment := ledger.ParseCommitment(cfg.Indexer.Commitment)
	applier := indexer.NewApplier(dbAdapter)
	runner := indexer.NewRunner(ledgerClient, decoder, applier, dbAdapter, cfg.Indexer.StreamKey)

	gate := &indexer.Gate{}
	worker := indexer.NewWorker(runner, gate, pollInterval, cfg.Indexer.LookbackLimit, commitment)
	indexerSvc := indexer.NewService(runner, gate, dbAdapter, cfg.Indexer.StreamKey,
		cfg.Indexer.LookbackLimit, commitment)

	slog.Info("[Indexer] Sync engine initialized",
		"interval", pollInterval,
		"enabled", cfg.Indexer.Enabled,
		"commitment", commitment,
		"lookback_limit", cfg.Indexer.LookbackLimit,
		"stream_key", cfg.Indexer.StreamKey,
	)

	// 5. Initialize Query Surface
	querySvc := query.NewService(dbAdapter)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	indexerapi.NewHandler(indexerSvc, cfg.Server.ReplaySecret).RegisterRoutes(srv.Engine)
	querySvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Indexer.Enabled {
		go func() {
			if err := worker.Start(ctx); err != nil {
				slog.Error("Indexer worker stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Indexer worker disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
