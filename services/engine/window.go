package engine

import (
	"fmt"
	"time"
)

const DefaultWindowSize = 100

// Window keeps the most recent bars of one instrument.
// Storage is a slice of twice the capacity that is compacted once full, so
// Append is amortized O(1) and views are contiguous slices.
type Window struct {
	capacity int
	start    int
	bars     []Bar
	closes   []float64
}

func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, invalid("window_size", "must be positive, got %d", capacity)
	}
	return &Window{
		capacity: capacity,
		bars:     make([]Bar, 0, 2*capacity),
		closes:   make([]float64, 0, 2*capacity),
	}, nil
}

// Append adds bar at the tail and evicts the head beyond capacity.
// Rejected bars leave the window unchanged.
func (w *Window) Append(bar Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}
	if last, ok := w.Last(); ok {
		switch {
		case bar.Timestamp.Before(last.Timestamp):
			return fmt.Errorf("%w: %s is before %s", ErrOutOfOrderBar, ts(bar.Timestamp), ts(last.Timestamp))
		case bar.Timestamp.Equal(last.Timestamp):
			return fmt.Errorf("%w: %s", ErrDuplicateBar, ts(bar.Timestamp))
		}
	}
	if len(w.bars) == cap(w.bars) {
		n := copy(w.bars, w.bars[w.start:])
		copy(w.closes, w.closes[w.start:])
		w.bars = w.bars[:n]
		w.closes = w.closes[:n]
		w.start = 0
	}
	w.bars = append(w.bars, bar)
	w.closes = append(w.closes, bar.Close)
	if len(w.bars)-w.start > w.capacity {
		w.start++
	}
	return nil
}

// Closes returns the closes oldest first. The view is valid until the next Append.
func (w *Window) Closes() []float64 {
	return w.closes[w.start:len(w.closes):len(w.closes)]
}

// Bars returns the bars oldest first. The view is valid until the next Append.
func (w *Window) Bars() []Bar {
	return w.bars[w.start:len(w.bars):len(w.bars)]
}

func (w *Window) Len() int { return len(w.bars) - w.start }
func (w *Window) Cap() int { return w.capacity }

func (w *Window) Last() (Bar, bool) {
	if w.Len() == 0 {
		return Bar{}, false
	}
	return w.bars[len(w.bars)-1], true
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }
