// Package live drives the decision engines from a bar feed against a broker
package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/broker"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/ledger"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/market"
)

type Config struct {
	Symbols      []string
	Rules        engine.RuleSet
	WindowSize   int
	MinEntryBars int
	// Session gates trading hours; nil trades every bar (replays)
	Session *market.Session
	// ClosedPoll bounds how long a closed-market wait sleeps before rechecking
	ClosedPoll time.Duration
}

// Stats is the running tally of the live session
type Stats struct {
	Bars      int
	Rejected  int
	Entries   int
	Exits     int
	Wins      int
	PnL       float64
	OpenCount int
	LastBar   time.Time
}

type Runner struct {
	cfg     Config
	src     feed.Source
	broker  broker.Broker
	ledger  ledger.Ledger
	engines map[string]*engine.Engine
	log     *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

func NewRunner(cfg Config, src feed.Source, b broker.Broker, l ledger.Ledger, logger *zap.Logger) (*Runner, error) {
	if len(cfg.Symbols) == 0 {
		return nil, engine.ErrNoInstruments
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if l == nil {
		l = ledger.Discard{}
	}
	if cfg.ClosedPoll <= 0 {
		cfg.ClosedPoll = time.Minute
	}
	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.WindowSize > 0 {
		opts = append(opts, engine.WithWindowSize(cfg.WindowSize))
	}
	if cfg.MinEntryBars > 0 {
		opts = append(opts, engine.WithMinEntryBars(cfg.MinEntryBars))
	}
	engines := make(map[string]*engine.Engine, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		e, err := engine.NewEngine(sym, cfg.Rules, opts...)
		if err != nil {
			return nil, fmt.Errorf("engine %s: %w", sym, err)
		}
		engines[sym] = e
	}
	return &Runner{
		cfg:     cfg,
		src:     src,
		broker:  b,
		ledger:  l,
		engines: engines,
		log:     logger.With(zap.String("strategy", cfg.Rules.Name)),
		now:     time.Now,
	}, nil
}

// Run consumes the feed until it ends or ctx is cancelled. Cancellation is
// only observed between bars.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.broker.Ping(ctx); err != nil {
		return fmt.Errorf("broker connectivity: %w", err)
	}
	r.log.Info("live trading started", zap.Strings("symbols", r.cfg.Symbols))
	for {
		if err := r.waitForMarket(ctx); err != nil {
			return r.stopped(err)
		}
		ev, err := r.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.log.Info("feed exhausted", zap.Any("stats", r.Stats()))
			return nil
		}
		if err != nil {
			return r.stopped(err)
		}
		r.HandleBar(ctx, ev)
	}
}

func (r *Runner) stopped(err error) error {
	if errors.Is(err, context.Canceled) {
		r.log.Info("live trading stopped", zap.Any("stats", r.Stats()))
		return nil
	}
	return err
}

func (r *Runner) waitForMarket(ctx context.Context) error {
	s := r.cfg.Session
	for s != nil {
		now := r.now()
		if s.IsOpen(now) {
			return nil
		}
		next := s.NextOpen(now)
		r.log.Info("market closed, waiting",
			zap.String("market", s.Code),
			zap.Time("next_open", next))
		wait := next.Sub(now)
		if wait > r.cfg.ClosedPoll {
			wait = r.cfg.ClosedPoll
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return ctx.Err()
}

// HandleBar evaluates one bar: entry while flat, then exit while open
func (r *Runner) HandleBar(ctx context.Context, ev feed.Event) {
	eng, ok := r.engines[ev.Symbol]
	if !ok {
		r.log.Debug("bar for unknown symbol", zap.String("symbol", ev.Symbol))
		return
	}
	if err := eng.Append(ev.Bar); err != nil {
		r.log.Warn("bar rejected", zap.String("symbol", ev.Symbol), zap.Error(err))
		r.update(func(s *Stats) { s.Rejected++ })
		return
	}
	r.update(func(s *Stats) {
		s.Bars++
		s.LastBar = ev.Bar.Timestamp
	})
	at := ev.Bar.Timestamp

	if eng.State() == engine.StateFlat {
		if d := eng.EntrySignal(at); d.Actionable() {
			r.enter(ctx, eng, d)
		}
	}
	if eng.State() == engine.StateOpen {
		d, err := eng.EvaluateExit(at)
		if err != nil {
			r.log.Error("exit evaluation failed", zap.String("symbol", ev.Symbol), zap.Error(err))
			return
		}
		if d.Actionable() {
			r.execute(ctx, eng, d)
		}
	}
}

// enter sizes an entry signal from the account's buying power
func (r *Runner) enter(ctx context.Context, eng *engine.Engine, signal engine.Decision) {
	bp, err := r.broker.BuyingPower(ctx)
	if err != nil {
		r.log.Warn("buying power unavailable, skipping entry", zap.String("symbol", signal.Symbol), zap.Error(err))
		return
	}
	d, err := eng.SizeEntry(signal, bp)
	if err != nil {
		r.log.Warn("entry sizing failed", zap.String("symbol", signal.Symbol), zap.Error(err))
		return
	}
	if d.Actionable() {
		r.execute(ctx, eng, d)
	}
}

// execute submits the order and commits only once the broker accepts it
func (r *Runner) execute(ctx context.Context, eng *engine.Engine, d engine.Decision) {
	order, _ := d.Order()
	fill, err := r.broker.Submit(ctx, order)
	if err != nil {
		r.log.Error("order failed, state unchanged",
			zap.String("symbol", d.Symbol),
			zap.String("kind", d.Kind.String()),
			zap.Error(err))
		return
	}
	trade, err := eng.Commit(d)
	if err != nil {
		r.log.Error("commit failed", zap.String("symbol", d.Symbol), zap.Error(err))
		return
	}
	if trade == nil {
		r.update(func(s *Stats) {
			s.Entries++
			s.OpenCount++
		})
		r.log.Info("ENTRY",
			zap.Time("at", d.At),
			zap.String("symbol", d.Symbol),
			zap.Stringer("side", d.Side),
			zap.Float64("qty", d.Quantity),
			zap.Float64("price", d.Price),
			zap.Float64("rsi", d.Indicators.RSI),
			zap.String("order_id", fill.OrderID))
		return
	}
	r.update(func(s *Stats) {
		s.Exits++
		s.OpenCount--
		s.PnL += trade.PnL
		if trade.Win() {
			s.Wins++
		}
	})
	r.log.Info("EXIT",
		zap.Time("at", trade.ExitTime),
		zap.String("symbol", trade.Symbol),
		zap.Stringer("side", trade.Side),
		zap.Float64("qty", trade.Quantity),
		zap.Float64("price", trade.ExitPrice),
		zap.Float64("entry_price", trade.EntryPrice),
		zap.Float64("elapsed_min", trade.ElapsedMinutes()),
		zap.Float64("pnl", trade.PnL),
		zap.String("reason", string(trade.Reason)))
	if err := r.ledger.Append(ctx, *trade); err != nil {
		r.log.Error("ledger append failed", zap.String("trade_id", trade.ID), zap.Error(err))
	}
}

func (r *Runner) update(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Positions lists the open positions by symbol order
func (r *Runner) Positions() []engine.Position {
	var out []engine.Position
	for _, sym := range r.cfg.Symbols {
		if p, ok := r.engines[sym].Position(); ok {
			out = append(out, p)
		}
	}
	return out
}
