package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

const DefaultStartingCapital = 5000.0

type SimConfig struct {
	StartingCapital float64       `json:"starting_capital"`
	WindowSize      int           `json:"window_size"`
	MinEntryBars    int           `json:"min_entry_bars"`
	Workers         int           `json:"workers"`
	BarInterval     time.Duration `json:"bar_interval"`
	RecordEvents    bool          `json:"record_events"`
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		StartingCapital: DefaultStartingCapital,
		WindowSize:      DefaultWindowSize,
		MinEntryBars:    DefaultMinEntryBars,
		BarInterval:     time.Minute,
	}
}

// RunResult summarizes one rule set replayed over the series
type RunResult struct {
	RunID            string        `json:"run_id"`
	Name             string        `json:"name"`
	RulesFingerprint string        `json:"rules_fingerprint"`
	DataChecksum     string        `json:"data_checksum"`
	Steps            int           `json:"steps"`
	Trades           int           `json:"trades"`
	Wins             int           `json:"wins"`
	Losses           int           `json:"losses"`
	PnL              float64       `json:"pnl"`
	StartingCapital  float64       `json:"starting_capital"`
	EndingCapital    float64       `json:"ending_capital"`
	MeanTradePnL     float64       `json:"mean_trade_pnl"`
	StdDevTradePnL   float64       `json:"stddev_trade_pnl"`
	MaxDrawdown      float64       `json:"max_drawdown"`
	OpenAtEnd        []Position    `json:"open_at_end,omitempty"`
	ClosedTrades     []ClosedTrade `json:"closed_trades,omitempty"`
	Events           *EventLog     `json:"events,omitempty"`
}

func (r RunResult) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}

type Simulator struct {
	cfg SimConfig
	log *zap.Logger
}

func NewSimulator(cfg SimConfig, log *zap.Logger) (*Simulator, error) {
	if !(cfg.StartingCapital > 0) {
		return nil, invalid("starting_capital", "must be positive, got %v", cfg.StartingCapital)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.MinEntryBars <= 0 {
		cfg.MinEntryBars = DefaultMinEntryBars
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{cfg: cfg, log: log}, nil
}

func (s *Simulator) Config() SimConfig { return s.cfg }

// accumulator is the capital shared by every instrument of one run
type accumulator struct {
	capital float64
	peak    float64
	maxDD   float64
	res     *RunResult
}

func (a *accumulator) realize(t ClosedTrade) {
	a.capital += t.PnL
	a.res.PnL += t.PnL
	a.res.Trades++
	if t.Win() {
		a.res.Wins++
	} else {
		a.res.Losses++
	}
	a.res.ClosedTrades = append(a.res.ClosedTrades, t)
	if a.capital > a.peak {
		a.peak = a.capital
	}
	if dd := (a.peak - a.capital) / a.peak; dd > a.maxDD {
		a.maxDD = dd
	}
}

// Run replays series in lock-step by index under one rule set
func (s *Simulator) Run(ctx context.Context, series []Series, rules RuleSet) (RunResult, error) {
	if len(series) == 0 {
		return RunResult{}, ErrNoInstruments
	}
	rules = rules.WithDefaults()
	engines := make([]*Engine, len(series))
	seen := make(map[string]bool, len(series))
	for i, sr := range series {
		if seen[sr.Symbol] {
			return RunResult{}, invalid("symbol", "%q appears twice", sr.Symbol)
		}
		seen[sr.Symbol] = true
		eng, err := NewEngine(sr.Symbol, rules,
			WithWindowSize(s.cfg.WindowSize),
			WithMinEntryBars(s.cfg.MinEntryBars),
			WithLogger(s.log))
		if err != nil {
			return RunResult{}, err
		}
		engines[i] = eng
	}

	align := Align(series, s.cfg.BarInterval)
	res := RunResult{
		RunID:            uuid.NewString(),
		Name:             rules.Name,
		RulesFingerprint: rules.Fingerprint(),
		DataChecksum:     Checksum(series),
		Steps:            align.Steps,
		StartingCapital:  s.cfg.StartingCapital,
	}
	if s.cfg.RecordEvents {
		res.Events = &EventLog{}
	}
	log := s.log.With(zap.String("run_id", res.RunID), zap.String("strategy", rules.Name))
	for sym, n := range align.Truncated {
		log.Info("series truncated to common length", zap.String("symbol", sym), zap.Int("dropped", n))
	}
	for sym, gaps := range align.Gaps {
		log.Debug("gaps in series", zap.String("symbol", sym), zap.Int("gaps", len(gaps)))
	}
	if align.Skewed > 0 {
		log.Warn("timestamps differ across instruments at some steps", zap.Int("steps", align.Skewed))
	}

	acc := &accumulator{capital: s.cfg.StartingCapital, peak: s.cfg.StartingCapital, res: &res}
	for i := 0; i < align.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		for j, eng := range engines {
			bar := series[j].Bars[i]
			if err := eng.Append(bar); err != nil {
				log.Warn("bar rejected", zap.String("symbol", eng.Symbol()), zap.Int("step", i), zap.Error(err))
				res.record(Event{At: bar.Timestamp, Type: EventBarRejected, Symbol: eng.Symbol(),
					Details: map[string]string{"error": err.Error()}})
				continue
			}
			if eng.State() != StateFlat {
				continue
			}
			d, err := eng.EvaluateEntry(bar.Timestamp, acc.capital)
			if err != nil {
				return RunResult{}, fmt.Errorf("step %d %s: %w", i, eng.Symbol(), err)
			}
			if d.Kind != DecisionEnter {
				continue
			}
			if _, err := eng.Commit(d); err != nil {
				return RunResult{}, err
			}
			res.record(Event{At: d.At, Type: EventEntry, Symbol: d.Symbol, Details: map[string]string{
				"side":  d.Side.String(),
				"price": fmt.Sprint(d.Price),
				"qty":   fmt.Sprint(d.Quantity),
			}})
		}
		for _, eng := range engines {
			if eng.State() != StateOpen {
				continue
			}
			last, _ := eng.Window().Last()
			d, err := eng.EvaluateExit(last.Timestamp)
			if err != nil {
				return RunResult{}, fmt.Errorf("step %d %s: %w", i, eng.Symbol(), err)
			}
			if d.Kind != DecisionExit {
				continue
			}
			trade, err := eng.Commit(d)
			if err != nil {
				return RunResult{}, err
			}
			acc.realize(*trade)
			res.record(Event{At: d.At, Type: EventExit, Symbol: d.Symbol, Details: map[string]string{
				"reason": string(trade.Reason),
				"pnl":    fmt.Sprint(trade.PnL),
			}})
		}
	}

	for _, eng := range engines {
		if pos, ok := eng.Position(); ok {
			res.OpenAtEnd = append(res.OpenAtEnd, pos)
		}
	}
	res.EndingCapital = acc.capital
	res.MaxDrawdown = acc.maxDD
	if n := len(res.ClosedTrades); n > 0 {
		pnls := make([]float64, n)
		for i, t := range res.ClosedTrades {
			pnls[i] = t.PnL
		}
		res.MeanTradePnL = stat.Mean(pnls, nil)
		if n > 1 {
			res.StdDevTradePnL = stat.StdDev(pnls, nil)
		}
	}
	log.Info("backtest finished",
		zap.Int("steps", res.Steps),
		zap.Int("trades", res.Trades),
		zap.Float64("pnl", res.PnL),
		zap.Int("open_at_end", len(res.OpenAtEnd)))
	return res, nil
}

func (r *RunResult) record(e Event) {
	if r.Events != nil {
		r.Events.Append(e)
	}
}

// RunAll replays every rule set independently; results keep input order
func (s *Simulator) RunAll(ctx context.Context, series []Series, rules []RuleSet) ([]RunResult, error) {
	if len(series) == 0 {
		return nil, ErrNoInstruments
	}
	results := make([]RunResult, len(rules))
	errs := make([]error, len(rules))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < NewPlanner(s.cfg.Workers).Workers(len(rules)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.Run(ctx, series, rules[i])
				if errs[i] != nil {
					errs[i] = fmt.Errorf("%s: %w", rules[i].Name, errs[i])
				}
			}
		}()
	}
	for i := range rules {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
