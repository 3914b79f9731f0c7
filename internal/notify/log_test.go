package notify

import (
	"context"
	"math/big"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"buyAlerts/internal/model"
)

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := &LogNotifier{Logger: zap.New(core), Formatter: NewFormatter(FormatConfig{TokenName: "BROTHER"})}

	record := model.SwapRecord{
		Hash:      "0xabc",
		Dex:       "Avnu.fi",
		AmountIn:  big.NewInt(1_000_000_000_000_000),
		AmountOut: new(big.Int).Mul(big.NewInt(500), big.NewInt(1_000_000_000_000_000_000)),
		Price:     0.000002,
		MarketCap: 6_000_000,
	}
	if err := n.Notify(context.Background(), record); err != nil {
		t.Fatalf("notify: %v", err)
	}

	entries := logs.FilterMessage("buy").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["tx_hash"] != "0xabc" || fields["spent_eth"] != "0.001" || fields["got"] != "500.00" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields["market_cap"] != "6,000,000" {
		t.Fatalf("market cap: %v", fields["market_cap"])
	}
}

func TestLogNotifierNilLogger(t *testing.T) {
	n := &LogNotifier{}
	if err := n.Notify(context.Background(), model.SwapRecord{AmountIn: big.NewInt(1), AmountOut: big.NewInt(1)}); err != nil {
		t.Fatalf("notify: %v", err)
	}
}
