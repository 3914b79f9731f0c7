package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buyAlerts/internal/chain"
	"buyAlerts/internal/config"
	"buyAlerts/internal/dex"
	"buyAlerts/internal/indexer"
	"buyAlerts/internal/model"
)

// blockFunc receives each block read from a file or fetched from the node.
type blockFunc func(block *model.Block) error

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
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
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
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

	ethUsd := cfg.EthUsd
	if ethUsd <= 0 {
		ethUsd = math.NaN()
	}
	market := dex.Market{
		TokenOfInterest: token,
		SourceToken:     source,
		TotalSupply:     cfg.TotalSupply,
		EthUsdPrice:     ethUsd,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outWriter, err := newJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	var errWriter *jsonlWriter
	if cfg.Errors != "" {
		errWriter, err = newJSONLWriter(cfg.Errors, false)
		if err != nil {
			return err
		}
		defer errWriter.Close()
	}
	recordFailure := func(rec model.DecodeError) {
		if err := writeDecodeError(errWriter, rec); err != nil {
			logger.Error("write decode error", zap.String("tx_hash", rec.TxHash), zap.Uint64("block", rec.BlockNumber), zap.Error(err))
		}
	}

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.From),
		zap.Uint64("to", cfg.To),
		zap.String("token", token.Hex()),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
	)

	var blocks, buys, failed int
	handle := func(block *model.Block) error {
		blocks++
		scan := indexer.ScanBlock(block, extractor, market)
		for _, rec := range scan.DecodeErrors {
			failed++
			recordFailure(rec)
		}
		for _, err := range scan.ExtractErrors {
			logger.Warn("extract swap", zap.Uint64("block", block.BlockNumber), zap.Error(err))
		}
		for _, swap := range scan.Swaps {
			if err := outWriter.Write(swap); err != nil {
				return err
			}
			buys++
		}
		return nil
	}

	if cfg.In != "" {
		err = readBlockFile(ctx, cfg.In, handle, func(lineErr error) {
			failed++
			recordFailure(model.DecodeError{Error: lineErr.Error()})
		})
	} else {
		err = fetchBlockRange(ctx, cfg, logger, handle)
	}
	if err != nil {
		return err
	}
	if err := outWriter.Close(); err != nil {
		return fmt.Errorf("close %s: %w", cfg.Out, err)
	}
	if err := errWriter.Close(); err != nil {
		return fmt.Errorf("close %s: %w", cfg.Errors, err)
	}

	logger.Info("decode complete",
		zap.Int("blocks", blocks),
		zap.Int("buys", buys),
		zap.Int("failed", failed),
	)
	return nil
}

// readBlockFile feeds every block of a JSONL file to fn. Malformed lines go to onBadLine.
func readBlockFile(ctx context.Context, path string, fn blockFunc, onBadLine func(error)) error {
	inputFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var block model.Block
		if err := json.Unmarshal(line, &block); err != nil {
			onBadLine(fmt.Errorf("decode block: %w", err))
			continue
		}
		if err := fn(&block); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

func fetchBlockRange(ctx context.Context, cfg config.DecodeConfig, logger *zap.Logger, fn blockFunc) error {
	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCAPIKey)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	policy := indexer.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBackoff}
	for number := cfg.From; number <= cfg.To; number++ {
		block, err := indexer.FetchBlock(ctx, chainClient, number, policy, func(attempt int, err error) {
			logger.Warn("get block failed", zap.Uint64("block", number), zap.Int("attempt", attempt+1), zap.Error(err))
		})
		if err != nil {
			return fmt.Errorf("block %d: %w", number, err)
		}
		if err := fn(block); err != nil {
			return err
		}
		if number == cfg.To {
			break
		}
	}
	return nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string, appendMode bool) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value any) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Calling it again is a no-op.
func (w *jsonlWriter) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	file := w.file
	w.file = nil
	if err := w.writer.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writeDecodeError appends errRecord when an errors file is configured.
func writeDecodeError(writer *jsonlWriter, errRecord model.DecodeError) error {
	if writer == nil {
		return nil
	}
	return writer.Write(errRecord)
}
