package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}

func TestCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.BlockProcessed(10)
	m.BlockProcessed(11)
	m.CycleSkipped()
	m.TransactionsDecoded(3, 1)
	m.SwapExtracted("Avnu.fi")
	m.Notification(nil)
	m.Notification(errors.New("boom"))
	m.IncError(ErrTypeFetch)
	m.ObserveCycle(20 * time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(m.blocksProcessed))
	require.Equal(t, float64(11), testutil.ToFloat64(m.headBlock))
	require.Equal(t, float64(1), testutil.ToFloat64(m.blocksSkipped))
	require.Equal(t, float64(3), testutil.ToFloat64(m.txDecoded.WithLabelValues(StatusSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.txDecoded.WithLabelValues(StatusError)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.swapsExtracted.WithLabelValues("Avnu.fi")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues(StatusError)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues(ErrTypeFetch)))
}

func TestSetEthUsdKeepsLastGoodRate(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetEthUsd(3000)
	m.SetEthUsd(math.NaN())
	require.Equal(t, float64(3000), testutil.ToFloat64(m.ethUsdPrice))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.BlockProcessed(1)
		m.CycleSkipped()
		m.TransactionsDecoded(1, 1)
		m.SwapExtracted("x")
		m.Notification(nil)
		m.IncError(ErrTypeStore)
		m.SetEthUsd(1)
		m.ObserveCycle(time.Second)
	})
}
