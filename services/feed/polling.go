package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// BarFetcher returns the latest completed minute bar of a symbol
type BarFetcher interface {
	LatestBar(ctx context.Context, symbol string) (engine.Bar, error)
}

type PollerConfig struct {
	Symbols  []string
	Interval time.Duration
	Retry    RetryPolicy
}

// Poller turns a request/response API into a Source. A bar is emitted only
// when it is newer than the last one seen for its symbol.
type Poller struct {
	fetcher BarFetcher
	cfg     PollerConfig
	log     *zap.Logger

	last   map[string]time.Time
	queue  []Event
	polled bool
}

func NewPoller(fetcher BarFetcher, cfg PollerConfig, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Poller{fetcher: fetcher, cfg: cfg, log: logger, last: map[string]time.Time{}}
}

func (p *Poller) Next(ctx context.Context) (Event, error) {
	for len(p.queue) == 0 {
		if p.polled {
			t := time.NewTimer(p.cfg.Interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return Event{}, ctx.Err()
			case <-t.C:
			}
		}
		p.polled = true
		if err := p.poll(ctx); err != nil {
			return Event{}, err
		}
	}
	ev := p.queue[0]
	p.queue = p.queue[1:]
	return ev, nil
}

func (p *Poller) poll(ctx context.Context) error {
	for _, sym := range p.cfg.Symbols {
		var bar engine.Bar
		err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			var err error
			bar, err = p.fetcher.LatestBar(ctx, sym)
			return err
		})
		switch {
		case err == nil:
		case ctx.Err() != nil:
			// an HTTP client timeout also matches DeadlineExceeded; only the caller's ctx ends polling
			return ctx.Err()
		case IsTransient(err):
			p.log.Warn("poll failed, skipping symbol this round", zap.String("symbol", sym), zap.Error(err))
			continue
		default:
			return err
		}
		if !bar.Timestamp.After(p.last[sym]) {
			continue
		}
		p.last[sym] = bar.Timestamp
		p.queue = append(p.queue, Event{Symbol: sym, Bar: bar})
	}
	return nil
}

func (p *Poller) Close() error { return nil }
