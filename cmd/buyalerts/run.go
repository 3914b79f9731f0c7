package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"buyAlerts/internal/chain"
	"buyAlerts/internal/config"
	"buyAlerts/internal/dex"
	"buyAlerts/internal/indexer"
	"buyAlerts/internal/metrics"
	"buyAlerts/internal/notify"
	"buyAlerts/internal/pricefeed"
	"buyAlerts/internal/storage"
	"buyAlerts/internal/storage/postgres"
)

const metricsShutdownGrace = 5 * time.Second

func runAlerts(cmd *cobra.Command, _ []string) error {
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

	if err := cfg.Validate(); err != nil {
		return err
	}
	token, source, err := config.ParseTokens(cfg.TokenAddress, cfg.TokenFrom)
	if err != nil {
		return err
	}
	descriptors, err := config.Descriptors(cfg.Routers, cfg.Dexes, source, token)
	if err != nil {
		return err
	}
	extractor, err := dex.NewExtractor(descriptors)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCAPIKey)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if chainID, err := chainClient.ChainID(ctx); err != nil {
		logger.Warn("chain id unavailable", zap.Error(err))
	} else {
		logger.Info("connected", zap.String("chain_id", chainID))
	}

	// Postgres ignores duplicate rows, so it goes before the append-only JSONL.
	var sinks storage.Multi
	var state storage.StateStore = &storage.FileStateStore{Path: cfg.StateFile}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		if cfg.StateFile == "" {
			state = &postgres.StateStore{Store: store, Name: "buyalerts:" + token.Hex()}
		}
	}
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}

	var decodeErrors indexer.DecodeErrorSink
	if cfg.Errors != "" {
		decodeErrors = storage.NewJsonlStorage(cfg.Errors)
	}

	formatter := notify.NewFormatter(notify.FormatConfig{
		TokenName: cfg.TokenName,
		SwapURL:   dex.AvnuDescriptor(source, token).AppURL,
		PoolID:    cfg.TokenPool,
		DexURLs:   dexURLs(descriptors),
	})
	var notifier indexer.Notifier = &notify.LogNotifier{Logger: logger, Formatter: formatter}
	if !cfg.DryRun {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, formatter)
		if err != nil {
			return err
		}
		notifier = telegram
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		TokenOfInterest: token,
		SourceToken:     source,
		TotalSupply:     cfg.TotalSupply,
		PollInterval:    cfg.PollInterval,
		MaxCatchUp:      cfg.MaxCatchUp,
		StateBatch:      cfg.StateBatch,
		Retry:           indexer.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBackoff},
	}, indexer.Dependencies{
		Source:       chainClient,
		Extractor:    extractor,
		Prices:       pricefeed.NewCoinbase(cfg.PriceURL, cfg.PriceTimeout, logger),
		Notifier:     notifier,
		Storage:      sinks,
		DecodeErrors: decodeErrors,
		State:        state,
		Metrics:      m,
	}, logger)

	logger.Info("buy alerts start",
		zap.String("token", token.Hex()),
		zap.String("token_from", source.Hex()),
		zap.String("token_name", cfg.TokenName),
		zap.Int("routers", len(descriptors)),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Bool("dry_run", cfg.DryRun),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, reg)
		g.Go(func() error { return server.Run(gctx, metricsShutdownGrace) })
	}
	err = g.Wait()

	last, ok := runner.LastProcessed()
	logger.Info("buy alerts stopped", zap.Uint64("last_block", last), zap.Bool("scanned", ok))
	return err
}

func dexURLs(descriptors []dex.RouterDescriptor) map[string]string {
	out := make(map[string]string, len(descriptors))
	for _, d := range descriptors {
		if d.AppURL != "" {
			out[d.Name] = d.AppURL
		}
	}
	return out
}
