package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerformanceMonitor(t *testing.T) {
	pm := NewPerformanceMonitor(SLOConfig{MaxDuration: time.Second, MinBarsPerSec: 1000})
	r := pm.Record("fast", 100*time.Millisecond, 1000)
	assert.InDelta(t, 10000, r.BarsPerSec, 1e-6)
	assert.Empty(t, pm.CheckSLOs())

	pm.Record("slow", 2*time.Second, 100)
	assert.Len(t, pm.CheckSLOs(), 2)
	assert.Len(t, pm.Results(), 2)
}

func BenchmarkSnapshot(b *testing.B) {
	closes := syntheticSeries("AAPL", DefaultWindowSize, 1).Closes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Snapshot(closes)
	}
}

func BenchmarkRun(b *testing.B) {
	sim, _ := NewSimulator(DefaultSimConfig(), nil)
	series := []Series{syntheticSeries("AAPL", 2000, 1), syntheticSeries("MSFT", 2000, 2)}
	rules := testRules()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sim.Run(context.Background(), series, rules); err != nil {
			b.Fatal(err)
		}
	}
}
