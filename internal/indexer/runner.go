package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"buyAlerts/internal/dex"
	"buyAlerts/internal/felt"
	"buyAlerts/internal/metrics"
	"buyAlerts/internal/model"
	"buyAlerts/internal/storage"
)

// BlockSource reads blocks from a Starknet node.
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockWithTxs(ctx context.Context, number uint64) (*model.Block, error)
}

// PriceFeed returns the ETH/USD rate, or NaN when it is unavailable.
type PriceFeed interface {
	EthUsd(ctx context.Context) float64
}

// Notifier delivers one alert per buy.
type Notifier interface {
	Notify(ctx context.Context, record model.SwapRecord) error
}

// DecodeErrorSink records transactions whose calldata could not be decoded.
type DecodeErrorSink interface {
	PutDecodeErrors(ctx context.Context, records []model.DecodeError) error
}

// RunConfig holds runtime settings for the poller.
type RunConfig struct {
	TokenOfInterest felt.Felt
	SourceToken     felt.Felt
	TotalSupply     float64
	PollInterval    time.Duration
	// MaxCatchUp bounds how many missed blocks one cycle scans; 0 means no bound.
	MaxCatchUp uint64
	// StateBatch is how many blocks are scanned between state saves.
	StateBatch uint64
	Retry      RetryPolicy
}

// Dependencies are the collaborators of a Runner. Source and Extractor are required.
type Dependencies struct {
	Source       BlockSource
	Extractor    *dex.Extractor
	Prices       PriceFeed
	Notifier     Notifier
	Storage      storage.Storage
	DecodeErrors DecodeErrorSink
	State        storage.StateStore
	Metrics      *metrics.Metrics
}

// Runner polls the node for new blocks and turns buys of the watched token into alerts.
type Runner struct {
	cfg     RunConfig
	deps    Dependencies
	logger  *zap.Logger
	last    uint64
	hasLast bool
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, deps Dependencies, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StateBatch == 0 {
		cfg.StateBatch = 100
	}
	return &Runner{cfg: cfg, deps: deps, logger: logger}
}

// LastProcessed returns the last scanned block.
func (r *Runner) LastProcessed() (uint64, bool) {
	return r.last, r.hasLast
}

// Run polls until ctx is cancelled. Cycle failures are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) error {
	if r.deps.Source == nil {
		return fmt.Errorf("block source is nil")
	}
	if r.deps.Extractor == nil {
		return fmt.Errorf("extractor is nil")
	}

	if err := r.restore(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := r.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) restore(ctx context.Context) error {
	if r.deps.State == nil || r.hasLast {
		return nil
	}
	last, ok, err := r.deps.State.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if ok {
		r.last, r.hasLast = last, true
		r.logger.Info("resume from state", zap.Uint64("last_processed", last))
	}
	return nil
}

// Cycle scans every block published since the previous cycle.
func (r *Runner) Cycle(ctx context.Context) error {
	started := time.Now()
	defer func() { r.deps.Metrics.ObserveCycle(time.Since(started)) }()

	var latest uint64
	err := withRetry(ctx, r.cfg.Retry, func(ctx context.Context) error {
		var err error
		latest, err = r.deps.Source.LatestBlockNumber(ctx)
		return err
	}, r.warnAttempt("latest block number failed"))
	if err != nil {
		r.deps.Metrics.IncError(metrics.ErrTypeFetch)
		return fmt.Errorf("latest block number: %w", err)
	}

	pending, skipped, ok := PendingRange(r.last, r.hasLast, latest, r.cfg.MaxCatchUp)
	if !ok {
		r.deps.Metrics.CycleSkipped()
		r.logger.Debug("no new block", zap.Uint64("latest", latest))
		return nil
	}
	if skipped > 0 {
		r.logger.Warn("catch-up bounded, skipping blocks",
			zap.Uint64("skipped", skipped),
			zap.Uint64("from", pending.From),
			zap.Uint64("to", pending.To),
		)
	}

	ethUsd := r.ethUsd(ctx)

	batches, err := SplitRange(pending.From, pending.To, r.cfg.StateBatch)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		for number := batch.From; number <= batch.To; number++ {
			if err := r.processBlock(ctx, number, ethUsd); err != nil {
				return errors.Join(fmt.Errorf("block %d: %w", number, err), r.saveState(ctx))
			}
		}
		if err := r.saveState(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ethUsd(ctx context.Context) float64 {
	if r.deps.Prices == nil {
		return nan()
	}
	rate := r.deps.Prices.EthUsd(ctx)
	r.deps.Metrics.SetEthUsd(rate)
	return rate
}

func (r *Runner) processBlock(ctx context.Context, number uint64, ethUsd float64) error {
	block, err := FetchBlock(ctx, r.deps.Source, number, r.cfg.Retry, r.warnAttempt("get block failed", zap.Uint64("block", number)))
	if err != nil {
		r.deps.Metrics.IncError(metrics.ErrTypeFetch)
		return fmt.Errorf("get block: %w", err)
	}

	swaps := r.extractBlock(ctx, block, ethUsd)

	// Store before alerting: a failed store re-scans the block next cycle.
	if r.deps.Storage != nil && len(swaps) > 0 {
		err := withRetry(ctx, r.cfg.Retry, func(ctx context.Context) error {
			return r.deps.Storage.PutSwapBatch(ctx, swaps)
		}, r.warnAttempt("store swaps failed", zap.Uint64("block", number)))
		if err != nil {
			r.deps.Metrics.IncError(metrics.ErrTypeStore)
			return fmt.Errorf("store swaps: %w", err)
		}
	}
	for _, swap := range swaps {
		r.notify(ctx, swap)
	}

	r.last, r.hasLast = number, true
	r.deps.Metrics.BlockProcessed(number)
	r.logger.Info("block processed",
		zap.Uint64("block", number),
		zap.Int("transactions", len(block.Transactions)),
		zap.Int("buys", len(swaps)),
	)
	return nil
}

// extractBlock scans the block, logging and counting what could not be read.
func (r *Runner) extractBlock(ctx context.Context, block *model.Block, ethUsd float64) []model.SwapRecord {
	scan := ScanBlock(block, r.deps.Extractor, dex.Market{
		TokenOfInterest: r.cfg.TokenOfInterest,
		SourceToken:     r.cfg.SourceToken,
		TotalSupply:     r.cfg.TotalSupply,
		EthUsdPrice:     ethUsd,
	})
	r.deps.Metrics.TransactionsDecoded(scan.Decoded, len(scan.DecodeErrors))

	for _, rec := range scan.DecodeErrors {
		r.logger.Warn("decode calldata", zap.Uint64("block", rec.BlockNumber), zap.String("tx_hash", rec.TxHash), zap.String("error", rec.Error))
	}
	if r.deps.DecodeErrors != nil && len(scan.DecodeErrors) > 0 {
		if err := r.deps.DecodeErrors.PutDecodeErrors(ctx, scan.DecodeErrors); err != nil {
			r.deps.Metrics.IncError(metrics.ErrTypeStore)
			r.logger.Warn("store decode errors", zap.Error(err))
		}
	}
	for _, err := range scan.ExtractErrors {
		r.deps.Metrics.IncError(metrics.ErrTypeExtract)
		r.logger.Warn("extract swap", zap.Uint64("block", block.BlockNumber), zap.Error(err))
	}
	for _, swap := range scan.Swaps {
		r.deps.Metrics.SwapExtracted(swap.Dex)
	}
	return scan.Swaps
}

// notify sends one alert, once. A send that timed out may still have been
// posted, so failures are counted and logged but never retried.
func (r *Runner) notify(ctx context.Context, swap model.SwapRecord) {
	if r.deps.Notifier == nil {
		return
	}
	err := r.deps.Notifier.Notify(ctx, swap)
	r.deps.Metrics.Notification(err)
	if err != nil {
		r.logger.Error("alert not delivered", zap.String("tx_hash", swap.Hash), zap.Error(err))
	}
}

func (r *Runner) saveState(ctx context.Context) error {
	if r.deps.State == nil || !r.hasLast {
		return nil
	}
	if err := r.deps.State.Save(ctx, r.last); err != nil {
		r.deps.Metrics.IncError(metrics.ErrTypeState)
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *Runner) warnAttempt(msg string, fields ...zap.Field) func(int, error) {
	return func(attempt int, err error) {
		r.logger.Warn(msg, append(fields, zap.Int("attempt", attempt+1), zap.Error(err))...)
	}
}
