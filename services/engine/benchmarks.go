package engine

// Throughput tracking for backtest runs

import (
	"fmt"
	"time"
)

type BenchmarkResult struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"duration"`
	Bars       int           `json:"bars"`
	BarsPerSec float64       `json:"bars_per_sec"`
}

type SLOConfig struct {
	MaxDuration   time.Duration
	MinBarsPerSec float64
}

type PerformanceMonitor struct {
	config  SLOConfig
	results []BenchmarkResult
}

func NewPerformanceMonitor(config SLOConfig) *PerformanceMonitor {
	return &PerformanceMonitor{config: config}
}

// Record stores the throughput of one run; bars counts every instrument
func (pm *PerformanceMonitor) Record(name string, duration time.Duration, bars int) BenchmarkResult {
	r := BenchmarkResult{Name: name, Duration: duration, Bars: bars}
	if duration > 0 {
		r.BarsPerSec = float64(bars) / duration.Seconds()
	}
	pm.results = append(pm.results, r)
	return r
}

func (pm *PerformanceMonitor) Results() []BenchmarkResult { return pm.results }

func (pm *PerformanceMonitor) CheckSLOs() []string {
	var violations []string
	for _, r := range pm.results {
		if pm.config.MaxDuration > 0 && r.Duration > pm.config.MaxDuration {
			violations = append(violations, fmt.Sprintf("%s took %s (max %s)", r.Name, r.Duration, pm.config.MaxDuration))
		}
		if pm.config.MinBarsPerSec > 0 && r.BarsPerSec < pm.config.MinBarsPerSec {
			violations = append(violations, fmt.Sprintf("%s ran %.0f bars/s (min %.0f)", r.Name, r.BarsPerSec, pm.config.MinBarsPerSec))
		}
	}
	return violations
}
