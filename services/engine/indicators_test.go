package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSIWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		closes := make([]float64, 14+rng.Intn(40))
		p := 50.0
		for j := range closes {
			p += rng.NormFloat64()
			closes[j] = p
		}
		rsi, ok := RSI(closes, DefaultRSIPeriod)
		require.True(t, ok)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.LessOrEqual(t, rsi, 100.0)
	}
}

func TestRSIZeroLosses(t *testing.T) {
	rsi, ok := RSI(rising(14, 100, 1), DefaultRSIPeriod)
	require.True(t, ok)
	assert.Equal(t, 0.0, rsi)

	rsi, ok = RSI(flat(20, 100), DefaultRSIPeriod)
	require.True(t, ok)
	assert.Equal(t, 0.0, rsi)
}

func TestRSIKnownValue(t *testing.T) {
	// 12 gains of 1 and one loss of 1 over 14 closes
	closes := []float64{10, 11, 12, 13, 14, 15, 16, 15, 16, 17, 18, 19, 20, 21}
	rsi, ok := RSI(closes, DefaultRSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 100-100.0/13, rsi, 1e-9)

	// only the last period closes count
	longer := append([]float64{500, 1}, closes...)
	again, _ := RSI(longer, DefaultRSIPeriod)
	assert.Equal(t, rsi, again)
}

func TestEWMAAdjusted(t *testing.T) {
	s := EWMASeries([]float64{1, 2, 3}, 3)
	require.Len(t, s, 3)
	assert.InDelta(t, 1.0, s[0], 1e-12)
	assert.InDelta(t, 5.0/3, s[1], 1e-12)
	assert.InDelta(t, 4.25/1.75, s[2], 1e-12)

	_, ok := EWMA([]float64{1, 2}, 3)
	assert.False(t, ok)
}

func TestIndicatorsUnavailable(t *testing.T) {
	_, ok := RSI(rising(13, 1, 1), DefaultRSIPeriod)
	assert.False(t, ok)

	_, _, ok = MACD(rising(25, 1, 1), DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	assert.False(t, ok)
	_, _, ok = MACD(rising(26, 1, 1), DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	assert.True(t, ok)

	_, ok = TrendOf(rising(49, 1, 1), DefaultTrendFast, DefaultTrendSlow)
	assert.False(t, ok)

	_, ok = Snapshot(rising(49, 1, 1))
	assert.False(t, ok)
	_, ok = Snapshot(rising(50, 1, 1))
	assert.True(t, ok)
}

func TestTrendMonotone(t *testing.T) {
	tr, ok := TrendOf(rising(60, 100, 0.5), DefaultTrendFast, DefaultTrendSlow)
	require.True(t, ok)
	assert.Equal(t, TrendUp, tr)

	tr, _ = TrendOf(rising(60, 100, -0.5), DefaultTrendFast, DefaultTrendSlow)
	assert.Equal(t, TrendDown, tr)

	tr, _ = TrendOf(flat(60, 100), DefaultTrendFast, DefaultTrendSlow)
	assert.Equal(t, TrendNeutral, tr)
}

func TestMACDRisingSeries(t *testing.T) {
	macd, signal, ok := MACD(rising(50, 100, 0.1), DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.True(t, ok)
	assert.Greater(t, macd, 0.0)
	assert.Greater(t, macd, signal)

	macd, signal, _ = MACD(flat(40, 100), DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	assert.InDelta(t, 0, macd, 1e-12)
	assert.InDelta(t, 0, signal, 1e-12)
}

func TestIndicatorParamsValidate(t *testing.T) {
	p := DefaultIndicatorParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 50, p.Warmup())

	p.MACDSlow = p.MACDFast
	assert.Error(t, p.Validate())
}
