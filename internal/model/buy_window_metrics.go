package model

import "time"

// BuyWindowMetrics stores aggregated buys of one token over a window.
type BuyWindowMetrics struct {
	Token          string
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	BuyCount       uint64
	AmountIn       string
	AmountOut      string
	VWAP           *string
	MinPrice       *float64
	MaxPrice       *float64
	FirstBlock     uint64
	LastBlock      uint64
	Dexes          []string
}
