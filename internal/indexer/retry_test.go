package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"buyAlerts/internal/model"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	var attempts []int
	err := withRetry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, func(attempt int, _ error) { attempts = append(attempts, attempt) })

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || len(attempts) != 2 {
		t.Fatalf("calls=%d attempts=%v", calls, attempts)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := withRetry(context.Background(), RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return boom
	}, nil)
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, RetryPolicy{MaxRetries: 10, BaseDelay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	}, nil)
	if err == nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{MaxRetries: -1}.normalized()
	if p.MaxRetries != 0 || p.BaseDelay <= 0 || p.MaxDelay <= 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestFetchBlockOverridesNumber(t *testing.T) {
	src := new(mockSource)
	src.On("BlockWithTxs", mock.Anything, uint64(7)).Return(&model.Block{BlockNumber: 0, Timestamp: 42}, nil).Once()

	got, err := FetchBlock(context.Background(), src, 7, RetryPolicy{}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.BlockNumber)
	assert.Equal(t, uint64(42), got.Timestamp)
}

func TestFetchBlockRejectsEmptyResponse(t *testing.T) {
	src := new(mockSource)
	src.On("BlockWithTxs", mock.Anything, uint64(7)).Return(nil, nil).Once()

	_, err := FetchBlock(context.Background(), src, 7, RetryPolicy{}, nil)
	require.Error(t, err)
}
