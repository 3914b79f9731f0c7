package model

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"buyAlerts/internal/felt"
)

func TestSwapRecordJSONRoundTrip(t *testing.T) {
	amountOut, _ := new(big.Int).SetString("500000000000000000000", 10)
	original := SwapRecord{
		TokenIn:     felt.MustParse("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"),
		TokenOut:    felt.MustParse("0x6cead2351c6fc93ccf3a43d4ddb645d0c851c1827b0332e3ac0c5c89d6560db"),
		AmountIn:    big.NewInt(1000000000000000),
		AmountOut:   amountOut,
		Hash:        "0xabc",
		CallIndex:   2,
		Price:       2e-6,
		MarketCap:   6000000,
		Dex:         "Avnu.fi",
		BlockNumber: 640000,
		EthUsdPrice: 3000,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded SwapRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.AmountOut.Cmp(original.AmountOut) != 0 || decoded.AmountIn.Cmp(original.AmountIn) != 0 {
		t.Fatalf("amount mismatch: %+v", decoded)
	}
	if !decoded.TokenIn.Equal(original.TokenIn) || !decoded.TokenOut.Equal(original.TokenOut) {
		t.Fatalf("token mismatch: %+v", decoded)
	}
	if decoded.CallIndex != original.CallIndex {
		t.Fatalf("call index mismatch: %d", decoded.CallIndex)
	}
	if decoded.Price != original.Price || decoded.MarketCap != original.MarketCap || decoded.Dex != original.Dex {
		t.Fatalf("derived fields mismatch: %+v", decoded)
	}
}

func TestSwapRecordJSONNonFinite(t *testing.T) {
	record := SwapRecord{
		AmountIn:    big.NewInt(1),
		AmountOut:   big.NewInt(2),
		Price:       0.5,
		MarketCap:   math.NaN(),
		EthUsdPrice: math.NaN(),
	}

	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if fields["market_cap"] != nil {
		t.Fatalf("market_cap should be null, got %v", fields["market_cap"])
	}
	if _, ok := fields["amount_in"].(string); !ok {
		t.Fatalf("amount_in should be string")
	}

	var decoded SwapRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !math.IsNaN(decoded.MarketCap) {
		t.Fatalf("market cap should decode as NaN, got %v", decoded.MarketCap)
	}
}
