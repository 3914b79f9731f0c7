package notify

import (
	"context"

	"go.uber.org/zap"

	"buyAlerts/internal/model"
)

// LogNotifier writes alerts to the log instead of delivering them.
type LogNotifier struct {
	Logger    *zap.Logger
	Formatter *Formatter
}

func (n *LogNotifier) Notify(_ context.Context, record model.SwapRecord) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := []zap.Field{
		zap.String("tx_hash", record.Hash),
		zap.String("dex", record.Dex),
		zap.String("spent_eth", FormatEther(record.AmountIn)),
		zap.String("got", FormatTokenAmount(record.AmountOut)),
		zap.String("price", FormatPrice(record.Price)),
	}
	if n.Formatter != nil {
		fields = append(fields, zap.String("market_cap", n.Formatter.FormatMarketCap(record.MarketCap)))
	}
	logger.Info("buy", fields...)
	return nil
}
