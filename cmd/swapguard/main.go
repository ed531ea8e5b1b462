package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapguard/internal/chain"
	"swapguard/internal/config"
	"swapguard/internal/oracle"
	"swapguard/internal/policy"
	"swapguard/internal/server"
	"swapguard/internal/storage"
	"swapguard/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "swapguard",
		Short:        "Per-pool swap policy engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the policy engine",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8480", "HTTP listen address")
	serveCmd.Flags().String("rpc", "", "chain RPC URL")
	serveCmd.Flags().String("wrapped-native", "", "wrapped native token address")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	serveCmd.Flags().String("audit", "./data/audit.jsonl", "JSONL audit file path")
	serveCmd.Flags().Int("load-retries", 5, "startup load retry attempts")
	serveCmd.Flags().Duration("load-backoff", 500*time.Millisecond, "initial startup load backoff")
	serveCmd.Flags().Duration("request-timeout", 10*time.Second, "HTTP request timeout")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	var wrappedNative common.Address
	if cfg.WrappedNative != "" {
		if !common.IsHexAddress(cfg.WrappedNative) {
			return fmt.Errorf("invalid wrapped-native address %q", cfg.WrappedNative)
		}
		wrappedNative = common.HexToAddress(cfg.WrappedNative)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	latest, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	logger.Info("chain connected",
		zap.String("chain_id", chainID.String()),
		zap.Uint64("latest_block", latest),
	)

	ownership := oracle.NewEthOwnership(chainClient, logger)
	resolver := oracle.NewEthResolver(chainClient, logger)

	sinks := storage.MultiSink{storage.NewJsonlSink(cfg.AuditPath)}

	var persister storage.Persister
	var pgStore *postgres.Store
	if cfg.PGDSN != "" {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		persister = pgStore
		sinks = append(sinks, pgStore)
	}

	store := policy.NewStore(policy.Config{WrappedNative: wrappedNative}, ownership, resolver, sinks, persister, logger)

	if pgStore != nil {
		records, err := pgStore.LoadAllWithRetry(ctx, cfg.LoadRetries, cfg.LoadBackoff)
		if err != nil {
			return fmt.Errorf("load policies: %w", err)
		}
		if err := store.Restore(records); err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		ListenAddr:     cfg.ListenAddr,
		RequestTimeout: cfg.RequestTimeout,
	}, store, server.NewMetrics(), logger)

	logger.Info("swapguard start",
		zap.String("listen", cfg.ListenAddr),
		zap.String("rpc", cfg.RPCURL),
		zap.String("wrapped_native", wrappedNative.Hex()),
		zap.Bool("postgres", pgStore != nil),
		zap.String("audit", cfg.AuditPath),
	)

	return srv.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
