package feed

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/arrowpipeline"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Replay serves recorded series as a live feed, interleaved by timestamp.
// Bars sharing a timestamp come out in series order.
type Replay struct {
	events []Event
	next   int
}

func NewReplay(series []engine.Series) *Replay {
	var events []Event
	for _, s := range series {
		for _, b := range s.Bars {
			events = append(events, Event{Symbol: s.Symbol, Bar: b})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Bar.Timestamp.Before(events[j].Bar.Timestamp)
	})
	return &Replay{events: events}
}

// OpenArrowReplay replays an Arrow IPC file written by the ingest pipeline
func OpenArrowReplay(path string, p *arrowpipeline.Pipeline) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	series, err := p.ReadSeries(f)
	if err != nil {
		return nil, err
	}
	return NewReplay(series), nil
}

func (r *Replay) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if r.next >= len(r.events) {
		return Event{}, io.EOF
	}
	ev := r.events[r.next]
	r.next++
	return ev, nil
}

func (r *Replay) Remaining() int { return len(r.events) - r.next }

func (r *Replay) Close() error { return nil }
