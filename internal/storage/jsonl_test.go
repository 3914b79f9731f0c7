package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"buyAlerts/internal/felt"
	"buyAlerts/internal/model"
)

func swap(hash string) model.SwapRecord {
	return model.SwapRecord{
		TokenIn:     felt.FromUint64(1),
		TokenOut:    felt.FromUint64(2),
		AmountIn:    big.NewInt(10),
		AmountOut:   big.NewInt(20),
		Hash:        hash,
		Price:       0.5,
		MarketCap:   math.NaN(),
		Dex:         "Jediswap",
		BlockNumber: 7,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "swaps.jsonl")
	s := NewJsonlStorage(path)
	ctx := context.Background()

	if err := s.PutSwapBatch(ctx, []model.SwapRecord{swap("0x1")}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := s.PutSwapBatch(ctx, []model.SwapRecord{swap("0x2"), swap("0x3")}); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if err := s.PutSwapBatch(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var got model.SwapRecord
	if err := json.Unmarshal([]byte(lines[2]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Hash != "0x3" || got.AmountOut.Int64() != 20 || !math.IsNaN(got.MarketCap) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestJsonlStorageDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.jsonl")
	s := NewJsonlStorage(path)

	err := s.PutDecodeErrors(context.Background(), []model.DecodeError{{BlockNumber: 3, TxHash: "0xbad", Error: "boom"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	lines := readLines(t, path)
	if len(lines) != 1 || lines[0] != `{"block_number":3,"tx_hash":"0xbad","error":"boom"}` {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

type failingSink struct{ err error }

func (f failingSink) PutSwapBatch(context.Context, []model.SwapRecord) error { return f.err }

// flakySink fails its first n batches.
type flakySink struct {
	n     int
	calls int
}

func (f *flakySink) PutSwapBatch(context.Context, []model.SwapRecord) error {
	f.calls++
	if f.calls <= f.n {
		return errors.New("unavailable")
	}
	return nil
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swaps.jsonl")
	boom := errors.New("boom")
	m := Multi{failingSink{err: boom}, nil, NewJsonlStorage(path)}

	err := m.PutSwapBatch(context.Background(), []model.SwapRecord{swap("0x1")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("later sink must not be written after a failure, stat err=%v", err)
	}
}

func TestMultiRepeatedBatchAppendsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swaps.jsonl")
	flaky := &flakySink{n: 2}
	m := Multi{flaky, NewJsonlStorage(path)}
	batch := []model.SwapRecord{swap("0x1")}

	var err error
	for attempt := 0; attempt < 4; attempt++ {
		if err = m.PutSwapBatch(context.Background(), batch); err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if lines := readLines(t, path); len(lines) != 1 {
		t.Fatalf("expected one line for one buy, got %d", len(lines))
	}
	if flaky.calls != 3 {
		t.Fatalf("expected 3 attempts on the flaky sink, got %d", flaky.calls)
	}
}
