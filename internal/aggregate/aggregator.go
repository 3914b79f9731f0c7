package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"buyAlerts/internal/felt"
	"buyAlerts/internal/model"
	"buyAlerts/internal/storage"
)

// WindowSink receives finished windows.
type WindowSink interface {
	UpsertBuyWindowMetrics(ctx context.Context, metrics []model.BuyWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	// Token restricts aggregation to buys of one token; zero keeps every token.
	Token felt.Felt
	// RecomputeFrom, when set, reprocesses buys from this unix time on.
	RecomputeFrom uint64
	StateStore    storage.StateStore
}

// Aggregator folds a swaps JSONL file into per-window buy summaries.
type Aggregator struct {
	cfg          Config
	sink         WindowSink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink WindowSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run aggregates the buys in inputPath. Input is expected in block order.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("window sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	batch := make([]model.BuyWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.SwapRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode swap record", zap.Error(err))
			continue
		}
		if record.Timestamp == 0 || record.Timestamp <= startTs {
			skipped++
			continue
		}
		if !a.cfg.Token.IsZero() && !record.TokenOut.Equal(a.cfg.Token) {
			skipped++
			continue
		}

		start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		key := record.TokenOut.Hex()
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != start {
			batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
			windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(key, start, start+a.cfg.WindowSeconds)
			a.accumulators[key] = acc
		}

		if err := acc.AddSwap(record); err != nil {
			failed++
			a.logger.Warn("aggregate swap", zap.Error(err), zap.String("tx_hash", record.Hash))
			continue
		}
		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertBuyWindowMetrics(ctx, batch); err != nil {
				return fmt.Errorf("store windows: %w", err)
			}
			batch = batch[:0]
			if err := a.saveState(ctx, maxTs); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	// The newest windows may still be receiving buys; resume at their start.
	resumeTs := a.resumePoint(maxTs)
	for _, acc := range a.accumulators {
		batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertBuyWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("store windows: %w", err)
		}
	}
	if err := a.storeState(ctx, resumeTs); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState stores the newest timestamp whose window is closed, so an open
// window is re-read in full by the next run.
func (a *Aggregator) saveState(ctx context.Context, maxTs uint64) error {
	return a.storeState(ctx, a.resumePoint(maxTs))
}

// resumePoint caps maxTs just below the earliest window still accumulating.
func (a *Aggregator) resumePoint(maxTs uint64) uint64 {
	open, ok := minOpenWindowStart(a.accumulators)
	if !ok || open > maxTs {
		return maxTs
	}
	if open == 0 {
		return 0
	}
	return open - 1
}

func (a *Aggregator) storeState(ctx context.Context, ts uint64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if err := a.cfg.StateStore.Save(ctx, ts); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func minOpenWindowStart(acc map[string]*Accumulator) (uint64, bool) {
	var min uint64
	found := false
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if !found || entry.WindowStart < min {
			min, found = entry.WindowStart, true
		}
	}
	return min, found
}
