package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"buyAlerts/internal/felt"
	"buyAlerts/internal/model"
	"buyAlerts/internal/storage"
)

var (
	eth   = felt.FromUint64(0xe7)
	token = felt.FromUint64(0x70)
	other = felt.FromUint64(0x71)
)

type memorySink struct {
	calls   int
	windows []model.BuyWindowMetrics
}

func (s *memorySink) UpsertBuyWindowMetrics(_ context.Context, metrics []model.BuyWindowMetrics) error {
	s.calls++
	s.windows = append(s.windows, metrics...)
	return nil
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func buy(out felt.Felt, ts, block uint64, in, got string, price float64, dex string) model.SwapRecord {
	return model.SwapRecord{
		TokenIn:     eth,
		TokenOut:    out,
		AmountIn:    wei(in),
		AmountOut:   wei(got),
		Hash:        "0x1",
		Price:       price,
		MarketCap:   math.NaN(),
		Dex:         dex,
		BlockNumber: block,
		Timestamp:   ts,
		EthUsdPrice: math.NaN(),
	}
}

func writeInput(t *testing.T, records []model.SwapRecord, extra ...string) string {
	t.Helper()
	var lines []string
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		lines = append(lines, string(data))
	}
	lines = append(lines, extra...)
	path := filepath.Join(t.TempDir(), "swaps.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestAggregatorWindows(t *testing.T) {
	const hour = 3600
	input := writeInput(t, []model.SwapRecord{
		buy(token, 10*hour+5, 100, "1000000000000000", "500000000000000000000", 2e-6, "Avnu.fi"),
		buy(other, 10*hour+50, 100, "1", "1", 1, "Avnu.fi"),
		buy(token, 10*hour+100, 101, "2000000000000000", "500000000000000000000", 4e-6, "Jediswap"),
		buy(token, 11*hour+1, 150, "1000000000000000", "250000000000000000000", 4e-6, "Avnu.fi"),
	}, "not json", "")

	sink := &memorySink{}
	state := &storage.FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	agg := NewAggregator(Config{WindowSeconds: hour, Token: token, StateStore: state}, sink, nil)

	if err := agg.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(sink.windows))
	}

	first := sink.windows[0]
	if first.BuyCount != 2 || first.AmountIn != "0.003000000000000000" || first.AmountOut != "1000.000000000000000000" {
		t.Fatalf("unexpected first window: %+v", first)
	}
	if first.VWAP == nil || *first.VWAP != "0.000003000000000000" {
		t.Fatalf("unexpected vwap: %v", first.VWAP)
	}
	if *first.MinPrice != 2e-6 || *first.MaxPrice != 4e-6 {
		t.Fatalf("unexpected price range: %v %v", *first.MinPrice, *first.MaxPrice)
	}
	if first.FirstBlock != 100 || first.LastBlock != 101 {
		t.Fatalf("unexpected blocks: %d-%d", first.FirstBlock, first.LastBlock)
	}
	if !reflect.DeepEqual(first.Dexes, []string{"Avnu.fi", "Jediswap"}) {
		t.Fatalf("unexpected dexes: %v", first.Dexes)
	}
	if first.WindowStart.Unix() != 10*hour || first.WindowEnd.Unix() != 11*hour || first.Token != token.Hex() {
		t.Fatalf("unexpected window bounds: %+v", first)
	}
	if sink.windows[1].BuyCount != 1 || sink.windows[1].WindowStart.Unix() != 11*hour {
		t.Fatalf("unexpected second window: %+v", sink.windows[1])
	}

	// The last window may still grow, so state stops just before it.
	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 11*hour-1 {
		t.Fatalf("unexpected state %d ok=%v err=%v", last, ok, err)
	}

	// A second run re-reads only the last window.
	sink2 := &memorySink{}
	if err := NewAggregator(Config{WindowSeconds: hour, Token: token, StateStore: state}, sink2, nil).Run(context.Background(), input); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(sink2.windows) != 1 || sink2.windows[0].BuyCount != 1 || sink2.windows[0].WindowStart.Unix() != 11*hour {
		t.Fatalf("unexpected resumed windows: %+v", sink2.windows)
	}
}

// upsertSink keeps the latest metrics per token and window, like the Postgres upsert.
type upsertSink struct {
	rows map[string]model.BuyWindowMetrics
}

func (s *upsertSink) UpsertBuyWindowMetrics(_ context.Context, metrics []model.BuyWindowMetrics) error {
	if s.rows == nil {
		s.rows = make(map[string]model.BuyWindowMetrics)
	}
	for _, m := range metrics {
		s.rows[fmt.Sprintf("%s/%d", m.Token, m.WindowStart.Unix())] = m
	}
	return nil
}

func TestAggregatorResumeKeepsOpenWindowTotals(t *testing.T) {
	const hour = 3600
	first := []model.SwapRecord{
		buy(token, 7200, 1, "10", "20", 0.5, "Avnu.fi"),
		buy(token, 7300, 2, "10", "20", 0.5, "Avnu.fi"),
	}
	grown := append(append([]model.SwapRecord(nil), first...), buy(token, 7400, 3, "10", "20", 0.5, "Avnu.fi"))

	sink := &upsertSink{}
	state := &storage.FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	cfg := Config{WindowSeconds: hour, StateStore: state}

	if err := NewAggregator(cfg, sink, nil).Run(context.Background(), writeInput(t, first)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := NewAggregator(cfg, sink, nil).Run(context.Background(), writeInput(t, grown)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	got, ok := sink.rows[fmt.Sprintf("%s/%d", token.Hex(), 7200)]
	if !ok {
		t.Fatalf("window 7200 missing: %v", sink.rows)
	}
	if got.BuyCount != 3 || got.FirstBlock != 1 || got.LastBlock != 3 {
		t.Fatalf("window 7200 after resume: count=%d blocks=%d-%d", got.BuyCount, got.FirstBlock, got.LastBlock)
	}
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	input := writeInput(t, []model.SwapRecord{
		buy(token, 100, 1, "10", "20", 0.5, "Avnu.fi"),
		buy(token, 200, 2, "10", "20", 0.5, "Avnu.fi"),
	})
	sink := &memorySink{}
	agg := NewAggregator(Config{WindowSeconds: 1000, RecomputeFrom: 150}, sink, nil)
	if err := agg.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.windows) != 1 || sink.windows[0].BuyCount != 1 {
		t.Fatalf("unexpected windows: %+v", sink.windows)
	}
}

func TestAggregatorValidation(t *testing.T) {
	if err := NewAggregator(Config{WindowSeconds: 60}, nil, nil).Run(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for nil sink")
	}
	if err := NewAggregator(Config{}, &memorySink{}, nil).Run(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for zero window")
	}
	if err := NewAggregator(Config{WindowSeconds: 60}, &memorySink{}, nil).Run(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestAccumulatorSkipsNaNPrice(t *testing.T) {
	acc := NewAccumulator(token.Hex(), 0, 60)
	if err := acc.AddSwap(buy(token, 1, 1, "10", "0", math.NaN(), "Avnu.fi")); err != nil {
		t.Fatalf("add: %v", err)
	}
	m := acc.Metrics(60)
	if m.MinPrice != nil || m.MaxPrice != nil || m.VWAP != nil {
		t.Fatalf("expected no price stats: %+v", m)
	}
	if err := acc.AddSwap(model.SwapRecord{Hash: "0x2"}); err == nil {
		t.Fatalf("expected error for missing amounts")
	}
}

func TestFormatTokenAmount(t *testing.T) {
	if got := formatTokenAmount(big.NewInt(-1500), 3); got != "-1.500" {
		t.Fatalf("unexpected %q", got)
	}
	if got := formatTokenAmount(nil, 18); got != "0" {
		t.Fatalf("unexpected %q", got)
	}
	if got := ratio(big.NewInt(1), big.NewInt(0)); got != "" {
		t.Fatalf("unexpected %q", got)
	}
}
