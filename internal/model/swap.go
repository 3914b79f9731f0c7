package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	"buyAlerts/internal/felt"
)

// SwapRecord is a qualifying buy of the watched token.
type SwapRecord struct {
	TokenIn     felt.Felt
	TokenOut    felt.Felt
	AmountIn    *big.Int
	AmountOut   *big.Int
	Hash        string
	// CallIndex is the position of the swap call within its transaction.
	CallIndex   int
	Price       float64
	MarketCap   float64
	Dex         string
	BlockNumber uint64
	// Timestamp is the block time in unix seconds.
	Timestamp   uint64
	EthUsdPrice float64
}

type swapRecordJSON struct {
	TokenIn     felt.Felt `json:"token_in"`
	TokenOut    felt.Felt `json:"token_out"`
	AmountIn    string    `json:"amount_in"`
	AmountOut   string    `json:"amount_out"`
	Hash        string    `json:"tx_hash"`
	CallIndex   int       `json:"call_index"`
	Price       *float64  `json:"price"`
	MarketCap   *float64  `json:"market_cap"`
	Dex         string    `json:"dex"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   uint64    `json:"timestamp"`
	EthUsdPrice *float64  `json:"eth_usd_price"`
}

// MarshalJSON encodes amounts as base-10 strings and non-finite floats as null.
func (s SwapRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(swapRecordJSON{
		TokenIn:     s.TokenIn,
		TokenOut:    s.TokenOut,
		AmountIn:    bigString(s.AmountIn),
		AmountOut:   bigString(s.AmountOut),
		Hash:        s.Hash,
		CallIndex:   s.CallIndex,
		Price:       finite(s.Price),
		MarketCap:   finite(s.MarketCap),
		Dex:         s.Dex,
		BlockNumber: s.BlockNumber,
		Timestamp:   s.Timestamp,
		EthUsdPrice: finite(s.EthUsdPrice),
	})
}

// UnmarshalJSON decodes a SwapRecord; null floats come back as NaN.
func (s *SwapRecord) UnmarshalJSON(data []byte) error {
	var raw swapRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amountIn, err := parseAmount(raw.AmountIn)
	if err != nil {
		return fmt.Errorf("amount_in: %w", err)
	}
	amountOut, err := parseAmount(raw.AmountOut)
	if err != nil {
		return fmt.Errorf("amount_out: %w", err)
	}
	*s = SwapRecord{
		TokenIn:     raw.TokenIn,
		TokenOut:    raw.TokenOut,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Hash:        raw.Hash,
		CallIndex:   raw.CallIndex,
		Price:       orNaN(raw.Price),
		MarketCap:   orNaN(raw.MarketCap),
		Dex:         raw.Dex,
		BlockNumber: raw.BlockNumber,
		Timestamp:   raw.Timestamp,
		EthUsdPrice: orNaN(raw.EthUsdPrice),
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", s)
	}
	return v, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
