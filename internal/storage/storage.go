package storage

import (
	"context"
	"fmt"

	"buyAlerts/internal/model"
)

// Storage defines a sink for extracted buys.
type Storage interface {
	PutSwapBatch(ctx context.Context, swaps []model.SwapRecord) error
}

// Multi writes a batch to several sinks in order and stops at the first
// failure, so a later sink only sees batches every earlier sink accepted.
// Retrying a failed batch calls the earlier sinks again: idempotent sinks
// (Postgres) go first, append-only ones (JSONL) last.
type Multi []Storage

func (m Multi) PutSwapBatch(ctx context.Context, swaps []model.SwapRecord) error {
	for i, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutSwapBatch(ctx, swaps); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
