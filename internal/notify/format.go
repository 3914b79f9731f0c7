package notify

import (
	"fmt"
	"html"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"buyAlerts/internal/model"
)

const (
	DefaultExplorerURL = "https://voyager.online/tx/"
	DefaultChartURL    = "https://www.geckoterminal.com/en/starknet-alpha/pools/"
	etherDecimals      = 18
)

// FormatConfig configures the alert text.
type FormatConfig struct {
	TokenName   string
	SwapURL     string
	PoolID      string
	ChartURL    string
	ExplorerURL string
	// DexURLs maps a DEX name to the page linked from the DEX line.
	DexURLs map[string]string
}

// Formatter renders swap records as Telegram HTML messages.
type Formatter struct {
	cfg     FormatConfig
	printer *message.Printer
}

func NewFormatter(cfg FormatConfig) *Formatter {
	if cfg.ExplorerURL == "" {
		cfg.ExplorerURL = DefaultExplorerURL
	}
	if cfg.ChartURL == "" {
		cfg.ChartURL = DefaultChartURL
	}
	return &Formatter{
		cfg:     cfg,
		printer: message.NewPrinter(language.English),
	}
}

// Format builds the alert for one buy.
func (f *Formatter) Format(record model.SwapRecord) string {
	name := html.EscapeString(f.cfg.TokenName)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s Buy!</b>\n", name)
	b.WriteString("🟢\n")
	fmt.Fprintf(&b, "<b>Spent</b>: %s ETH\n", FormatEther(record.AmountIn))
	fmt.Fprintf(&b, "<b>Got</b>: %s %s\n", FormatTokenAmount(record.AmountOut), name)
	fmt.Fprintf(&b, "<b>DEX</b>: %s\n", f.dexLink(record.Dex))
	fmt.Fprintf(&b, "<b>Price</b>: $%s ETH\n", FormatPrice(record.Price))
	fmt.Fprintf(&b, "<b>MarketCap</b>: $%s\n", f.FormatMarketCap(record.MarketCap))

	links := []string{link(f.cfg.ExplorerURL+record.Hash, "TX")}
	if f.cfg.SwapURL != "" {
		links = append(links, link(f.cfg.SwapURL, "Swap"))
	}
	if f.cfg.PoolID != "" {
		links = append(links, link(f.cfg.ChartURL+f.cfg.PoolID, "Chart"))
	}
	b.WriteString(strings.Join(links, " | "))
	return b.String()
}

func (f *Formatter) dexLink(dex string) string {
	if url, ok := f.cfg.DexURLs[dex]; ok && url != "" {
		return link(url, dex)
	}
	return html.EscapeString(dex)
}

// FormatMarketCap groups thousands; NaN and infinities are spelled out.
func (f *Formatter) FormatMarketCap(v float64) string {
	if s, ok := nonFinite(v); ok {
		return s
	}
	if math.Abs(v) < math.MaxInt64/2 {
		return f.printer.Sprintf("%d", int64(v))
	}
	return f.printer.Sprintf("%.0f", v)
}

// FormatEther renders a smallest-unit amount as an exact 18-decimal number.
func FormatEther(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -etherDecimals).String()
}

// FormatTokenAmount renders a smallest-unit amount with two decimals.
func FormatTokenAmount(amount *big.Int) string {
	if amount == nil {
		return "0.00"
	}
	return decimal.NewFromBigInt(amount, -etherDecimals).StringFixed(2)
}

// FormatPrice renders a price with 13 decimals.
func FormatPrice(price float64) string {
	if s, ok := nonFinite(price); ok {
		return s
	}
	return strconv.FormatFloat(price, 'f', 13, 64)
}

func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "NaN", true
	case math.IsInf(v, 1):
		return "Infinity", true
	case math.IsInf(v, -1):
		return "-Infinity", true
	default:
		return "", false
	}
}

func link(url, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}
