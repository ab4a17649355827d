package engine

import (
	"fmt"
	"math"
	"time"
)

// Bar represents a single OHLC bar
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// Validate rejects bars without a timestamp or with non-finite/non-positive prices
func (b Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidBar)
	}
	prices := [...]struct {
		name  string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return fmt.Errorf("%w: %s=%v at %s", ErrInvalidBar, p.name, p.value, b.Timestamp.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// Series is the replayable bar history of one instrument, oldest first
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Closes extracts the close column
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}
