package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "buyalerts"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Error types counted in errors_total.
const (
	ErrTypeFetch   = "fetch"
	ErrTypeExtract = "extract"
	ErrTypeStore   = "store"
	ErrTypeState   = "state"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	headBlock       prometheus.Gauge
	blocksProcessed prometheus.Counter
	blocksSkipped   prometheus.Counter
	txDecoded       *prometheus.CounterVec
	swapsExtracted  *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	errors          *prometheus.CounterVec
	ethUsdPrice     prometheus.Gauge
	cycleDuration   prometheus.Histogram
}

// New creates the alert pipeline metrics and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		headBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "head_block",
			Help:      "Last block number scanned for buys",
		}),
		blocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blocks_processed_total",
			Help:      "Total number of blocks scanned",
		}),
		blocksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycles_skipped_total",
			Help:      "Polling cycles that found no new block",
		}),
		txDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "transactions_decoded_total",
			Help:      "Invoke transactions decoded by status",
		}, []string{"status"}),
		swapsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "swaps_extracted_total",
			Help:      "Buys extracted by DEX",
		}, []string{"dex"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Alert deliveries by status",
		}, []string{"status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"type"}),
		ethUsdPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "eth_usd_price",
			Help:      "Last ETH/USD rate used for market cap",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent in one polling cycle",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}

	err := errors.Join(
		reg.Register(m.headBlock),
		reg.Register(m.blocksProcessed),
		reg.Register(m.blocksSkipped),
		reg.Register(m.txDecoded),
		reg.Register(m.swapsExtracted),
		reg.Register(m.notifications),
		reg.Register(m.errors),
		reg.Register(m.ethUsdPrice),
		reg.Register(m.cycleDuration),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) BlockProcessed(number uint64) {
	if m == nil {
		return
	}
	m.blocksProcessed.Inc()
	m.headBlock.Set(float64(number))
}

func (m *Metrics) CycleSkipped() {
	if m == nil {
		return
	}
	m.blocksSkipped.Inc()
}

// TransactionsDecoded records decode outcomes for one block.
func (m *Metrics) TransactionsDecoded(ok, failed int) {
	if m == nil {
		return
	}
	m.txDecoded.WithLabelValues(StatusSuccess).Add(float64(ok))
	m.txDecoded.WithLabelValues(StatusError).Add(float64(failed))
}

func (m *Metrics) SwapExtracted(dex string) {
	if m == nil {
		return
	}
	m.swapsExtracted.WithLabelValues(dex).Inc()
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) IncError(errType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errType).Inc()
}

// SetEthUsd ignores NaN so the gauge keeps the last good rate.
func (m *Metrics) SetEthUsd(rate float64) {
	if m == nil || rate != rate {
		return
	}
	m.ethUsdPrice.Set(rate)
}

func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}
