package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"buyAlerts/internal/dex"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "buyalerts",
		Short:        "Starknet token buy alerts",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Poll new blocks and post an alert for every buy",
		RunE:  runAlerts,
	}
	addNodeFlags(runCmd)
	addTokenFlags(runCmd)
	runCmd.Flags().String("token-name", "", "token symbol shown in alerts")
	runCmd.Flags().String("token-pool", "", "pool address for the chart link")
	runCmd.Flags().String("telegram-token", "", "Telegram bot token")
	runCmd.Flags().String("telegram-chat-id", "", "Telegram chat id or @channel")
	runCmd.Flags().Duration("poll-interval", time.Second, "block polling interval")
	runCmd.Flags().String("out", "./data/swaps.jsonl", "swap records JSONL, empty to disable")
	runCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL, empty to disable")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for swaps and state")
	runCmd.Flags().String("state-file", "./data/state.json", "last processed block file, empty to keep state in Postgres")
	runCmd.Flags().Uint64("max-catchup", 50, "maximum missed blocks scanned in one cycle, 0 for no limit")
	runCmd.Flags().Uint64("state-batch", 10, "blocks scanned between state saves")
	runCmd.Flags().String("price-url", "", "ETH/USD exchange rates endpoint")
	runCmd.Flags().Duration("price-timeout", 5*time.Second, "price request timeout")
	runCmd.Flags().String("metrics-addr", "", "Prometheus listen address, e.g. :9090")
	runCmd.Flags().Bool("dry-run", false, "log alerts instead of sending them")
	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Extract buys from a block file or a block range",
		RunE:  runDecode,
	}
	addNodeFlags(decodeCmd)
	addTokenFlags(decodeCmd)
	decodeCmd.Flags().String("in", "", "input blocks JSONL (one starknet_getBlockWithTxs result per line)")
	decodeCmd.Flags().Uint64("from", 0, "first block (inclusive) when reading from --rpc")
	decodeCmd.Flags().Uint64("to", 0, "last block (inclusive) when reading from --rpc")
	decodeCmd.Flags().Float64("eth-usd", 0, "ETH/USD rate for market cap, 0 leaves it unknown")
	decodeCmd.Flags().String("out", "./data/swaps.jsonl", "output swap records JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	root.AddCommand(decodeCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate swap records into per-window buy metrics",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("in", "./data/swaps.jsonl", "input swap records JSONL")
	aggregateCmd.Flags().String("token-address", "", "only aggregate buys of this token")
	aggregateCmd.Flags().String("window", "1h", "aggregation window (e.g. 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(aggregateCmd)

	return root
}

func addNodeFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Starknet JSON-RPC URL")
	cmd.Flags().String("rpc-api-key", "", "API key sent as x-apikey")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addTokenFlags(cmd *cobra.Command) {
	cmd.Flags().String("token-address", "", "watched token contract")
	cmd.Flags().String("token-from", dex.DefaultSourceToken, "token the watched token is bought with")
	cmd.Flags().Float64("total-supply", 0, "watched token total supply in smallest units")
	cmd.Flags().StringSlice("dexes", nil, "enabled DEX names (default all)")
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

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
