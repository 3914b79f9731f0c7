package aggregate

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"buyAlerts/internal/model"
)

// Accumulator holds the buys of one token inside one window.
type Accumulator struct {
	Token       string
	WindowStart uint64
	WindowEnd   uint64
	BuyCount    uint64
	AmountIn    *big.Int
	AmountOut   *big.Int
	MinPrice    float64
	MaxPrice    float64
	hasPrice    bool
	FirstBlock  uint64
	LastBlock   uint64
	dexes       map[string]struct{}
}

func NewAccumulator(token string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Token:       token,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		AmountIn:    big.NewInt(0),
		AmountOut:   big.NewInt(0),
		dexes:       make(map[string]struct{}),
	}
}

// AddSwap folds one buy into the window.
func (a *Accumulator) AddSwap(record model.SwapRecord) error {
	if record.AmountIn == nil || record.AmountOut == nil {
		return fmt.Errorf("swap %s has no amounts", record.Hash)
	}
	if record.AmountIn.Sign() < 0 || record.AmountOut.Sign() < 0 {
		return fmt.Errorf("swap %s has negative amounts", record.Hash)
	}

	a.AmountIn.Add(a.AmountIn, record.AmountIn)
	a.AmountOut.Add(a.AmountOut, record.AmountOut)
	a.BuyCount++

	if a.FirstBlock == 0 || record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}
	if record.BlockNumber > a.LastBlock {
		a.LastBlock = record.BlockNumber
	}
	if record.Dex != "" {
		a.dexes[record.Dex] = struct{}{}
	}

	price := record.Price
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil
	}
	if !a.hasPrice || price < a.MinPrice {
		a.MinPrice = price
	}
	if !a.hasPrice || price > a.MaxPrice {
		a.MaxPrice = price
	}
	a.hasPrice = true
	return nil
}

// Metrics renders the window. VWAP is total spent over total received.
func (a *Accumulator) Metrics(windowSeconds uint64) model.BuyWindowMetrics {
	m := model.BuyWindowMetrics{
		Token:          a.Token,
		WindowSizeSecs: int64(windowSeconds),
		WindowStart:    time.Unix(int64(a.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(a.WindowEnd), 0).UTC(),
		BuyCount:       a.BuyCount,
		AmountIn:       formatTokenAmount(a.AmountIn, tokenDecimals),
		AmountOut:      formatTokenAmount(a.AmountOut, tokenDecimals),
		FirstBlock:     a.FirstBlock,
		LastBlock:      a.LastBlock,
		Dexes:          a.Dexes(),
	}
	if vwap := ratio(a.AmountIn, a.AmountOut); vwap != "" {
		m.VWAP = &vwap
	}
	if a.hasPrice {
		minPrice, maxPrice := a.MinPrice, a.MaxPrice
		m.MinPrice = &minPrice
		m.MaxPrice = &maxPrice
	}
	return m
}

// Dexes returns the venues seen in the window, sorted.
func (a *Accumulator) Dexes() []string {
	out := make([]string, 0, len(a.dexes))
	for dex := range a.dexes {
		out = append(out, dex)
	}
	sort.Strings(out)
	return out
}
