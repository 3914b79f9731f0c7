package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const DefaultCoinbaseURL = "https://api.coinbase.com/v2/exchange-rates?currency=ETH"

type exchangeRates struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

// Coinbase reads the ETH/USD rate from the Coinbase exchange-rates endpoint.
type Coinbase struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewCoinbase(url string, timeout time.Duration, logger *zap.Logger) *Coinbase {
	if url == "" {
		url = DefaultCoinbaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coinbase{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// EthUsd returns the whole-dollar ETH price, or NaN when it cannot be fetched.
func (c *Coinbase) EthUsd(ctx context.Context) float64 {
	rate, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("eth price unavailable", zap.Error(err))
		return math.NaN()
	}
	return rate
}

func (c *Coinbase) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("get rates: status %d", resp.StatusCode)
	}

	var body exchangeRates
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rates: %w", err)
	}
	usd, ok := body.Data.Rates["USD"]
	if !ok {
		return 0, fmt.Errorf("USD rate missing")
	}
	rate, err := strconv.ParseFloat(usd, 64)
	if err != nil {
		return 0, fmt.Errorf("parse USD rate %q: %w", usd, err)
	}
	return math.Trunc(rate), nil
}
