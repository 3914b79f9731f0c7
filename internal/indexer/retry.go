package indexer

import (
	"context"
	"fmt"
	"time"

	"buyAlerts/internal/model"
)

// RetryPolicy controls exponential backoff around network calls.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	return p
}

// withRetry runs fn until it succeeds, retries are exhausted or ctx is done.
// onErr, when set, sees every failed attempt.
func withRetry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error, onErr func(attempt int, err error)) error {
	policy = policy.normalized()

	delay := policy.BaseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if onErr != nil {
			onErr(attempt, err)
		}
		if attempt >= policy.MaxRetries || ctx.Err() != nil {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

// FetchBlock reads one block with retries. The returned block carries the
// requested number whatever the node echoes back.
func FetchBlock(ctx context.Context, source BlockSource, number uint64, policy RetryPolicy, onErr func(attempt int, err error)) (*model.Block, error) {
	var block *model.Block
	err := withRetry(ctx, policy, func(ctx context.Context) error {
		var err error
		block, err = source.BlockWithTxs(ctx, number)
		return err
	}, onErr)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("block %d: empty response", number)
	}
	block.BlockNumber = number
	return block, nil
}
