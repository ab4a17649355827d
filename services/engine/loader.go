package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"time"
)

// Alignment describes how a set of series will be replayed in lock-step
type Alignment struct {
	Steps     int
	Truncated map[string]int         // bars dropped per symbol beyond Steps
	Gaps      map[string][]time.Time // bar timestamps followed by a gap
	Skewed    int                    // steps whose timestamps differ across symbols
}

// Align replays series by index up to the shortest length. Timestamps are
// not matched across instruments; skew and gaps are only reported.
func Align(series []Series, step time.Duration) Alignment {
	a := Alignment{Truncated: map[string]int{}, Gaps: map[string][]time.Time{}}
	if len(series) == 0 {
		return a
	}
	a.Steps = len(series[0].Bars)
	for _, s := range series[1:] {
		if len(s.Bars) < a.Steps {
			a.Steps = len(s.Bars)
		}
	}
	for _, s := range series {
		if extra := len(s.Bars) - a.Steps; extra > 0 {
			a.Truncated[s.Symbol] = extra
		}
		if gaps := DetectGaps(s.Bars[:a.Steps], step); len(gaps) > 0 {
			a.Gaps[s.Symbol] = gaps
		}
	}
	for i := 0; i < a.Steps; i++ {
		t0 := series[0].Bars[i].Timestamp
		for _, s := range series[1:] {
			if !s.Bars[i].Timestamp.Equal(t0) {
				a.Skewed++
				break
			}
		}
	}
	return a
}

// DetectGaps returns the timestamps after which more than step elapsed
func DetectGaps(bars []Bar, step time.Duration) (gaps []time.Time) {
	if step <= 0 {
		return nil
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Sub(bars[i-1].Timestamp) > step {
			gaps = append(gaps, bars[i-1].Timestamp)
		}
	}
	return gaps
}

// Checksum is a SHA-256 over symbols and bar values, independent of input order
func Checksum(series []Series) string {
	sorted := make([]Series, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })
	h := sha256.New()
	var buf [8]byte
	for _, s := range sorted {
		h.Write([]byte(s.Symbol))
		for _, b := range s.Bars {
			binary.LittleEndian.PutUint64(buf[:], uint64(b.Timestamp.UnixNano()))
			h.Write(buf[:])
			for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
				h.Write(buf[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
