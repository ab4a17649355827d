package engine

import (
	"math"
	"math/rand"
	"time"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func minuteBars(start time.Time, closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Timestamp: start.Add(time.Duration(i) * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func rising(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// syntheticSeries is a seeded random walk with a slow cycle so both entry
// sides and all exit reasons occur
func syntheticSeries(symbol string, n int, seed int64) Series {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	p := 100.0
	for i := range closes {
		p *= 1 + 0.0015*math.Sin(float64(i)/25) + 0.001*rng.NormFloat64()
		closes[i] = p
	}
	return Series{Symbol: symbol, Bars: minuteBars(t0, closes...)}
}

func testRules() RuleSet {
	return RuleSet{
		Name:                 "Strategy_3_Balanced",
		TakeProfitPct:        0.0025,
		StopLossPct:          0.0015,
		MaxHoldMinutes:       8,
		RSIBuyThreshold:      35,
		PositionSizeFraction: 0.1,
		QuantityDecimals:     DefaultQuantityDecimals,
	}
}
