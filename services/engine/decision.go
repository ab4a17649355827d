package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	StateFlat State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "flat"
}

type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	DecisionEnter
	DecisionExit
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionEnter:
		return "enter"
	case DecisionExit:
		return "exit"
	default:
		return "none"
	}
}

// Reason explains a decision or a closed trade
type Reason string

const (
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonNoSignal         Reason = "no_signal"
	ReasonZeroQuantity     Reason = "zero_quantity"
	ReasonHolding          Reason = "holding"
	ReasonLongSignal       Reason = "long_signal"
	ReasonShortSignal      Reason = "short_signal"
	ReasonTakeProfit       Reason = "take_profit"
	ReasonStopLoss         Reason = "stop_loss"
	ReasonMaxHold          Reason = "max_hold"
)

// Decision is a proposal computed from the engine state; nothing changes
// until it is passed to Commit.
type Decision struct {
	Kind       DecisionKind      `json:"kind"`
	Symbol     string            `json:"symbol"`
	Reason     Reason            `json:"reason"`
	At         time.Time         `json:"at"`
	Side       PositionSide      `json:"side"`
	Price      float64           `json:"price"`
	Quantity   float64           `json:"quantity"`
	PnL        float64           `json:"pnl"`
	Indicators IndicatorSnapshot `json:"indicators"`
}

func (d Decision) Actionable() bool { return d.Kind != DecisionNone }

type engineOptions struct {
	windowSize   int
	minEntryBars int
	params       IndicatorParams
	log          *zap.Logger
}

type Option func(*engineOptions)

func WithWindowSize(n int) Option     { return func(o *engineOptions) { o.windowSize = n } }
func WithMinEntryBars(n int) Option   { return func(o *engineOptions) { o.minEntryBars = n } }
func WithLogger(l *zap.Logger) Option { return func(o *engineOptions) { o.log = l } }
func WithIndicators(p IndicatorParams) Option {
	return func(o *engineOptions) { o.params = p }
}

// Engine is the per-instrument Flat/Open state machine.
// It is not safe for concurrent use.
type Engine struct {
	symbol       string
	rules        RuleSet
	params       IndicatorParams
	minEntryBars int
	window       *Window
	position     *Position
	log          *zap.Logger
}

func NewEngine(symbol string, rules RuleSet, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, invalid("symbol", "must not be empty")
	}
	rules = rules.WithDefaults()
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	o := engineOptions{
		windowSize:   DefaultWindowSize,
		minEntryBars: DefaultMinEntryBars,
		params:       DefaultIndicatorParams(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.params.Validate(); err != nil {
		return nil, err
	}
	if o.minEntryBars < 1 || o.minEntryBars > o.windowSize {
		return nil, invalid("min_entry_bars", "must be in [1,%d], got %d", o.windowSize, o.minEntryBars)
	}
	if w := o.params.Warmup(); w > o.windowSize {
		return nil, invalid("window_size", "%d cannot hold the %d-bar indicator warmup", o.windowSize, w)
	}
	window, err := NewWindow(o.windowSize)
	if err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return &Engine{
		symbol:       symbol,
		rules:        rules,
		params:       o.params,
		minEntryBars: o.minEntryBars,
		window:       window,
		log:          o.log.With(zap.String("symbol", symbol), zap.String("strategy", rules.Name)),
	}, nil
}

func (e *Engine) Symbol() string  { return e.symbol }
func (e *Engine) Rules() RuleSet  { return e.rules }
func (e *Engine) Window() *Window { return e.window }

func (e *Engine) State() State {
	if e.position != nil {
		return StateOpen
	}
	return StateFlat
}

func (e *Engine) Position() (Position, bool) {
	if e.position == nil {
		return Position{}, false
	}
	return *e.position, true
}

// Append feeds the next bar into the window
func (e *Engine) Append(bar Bar) error { return e.window.Append(bar) }

// EvaluateEntry proposes a new position sized from capital. Must only be
// called while Flat.
func (e *Engine) EvaluateEntry(at time.Time, capital float64) (Decision, error) {
	if err := checkCapital(capital); err != nil {
		return Decision{}, err
	}
	d := e.EntrySignal(at)
	if d.Kind != DecisionEnter {
		return d, nil
	}
	return e.SizeEntry(d, capital)
}

// EntrySignal is EvaluateEntry without sizing: an entry decision with zero
// quantity when the signal qualifies. Live callers use it to fetch buying
// power only for real entries.
func (e *Engine) EntrySignal(at time.Time) Decision {
	e.assertState(StateFlat, "entry evaluation")
	none := Decision{Kind: DecisionNone, Symbol: e.symbol, At: at, Reason: ReasonInsufficientData}
	if e.window.Len() < e.minEntryBars {
		return none
	}
	snap, ok := e.params.Snapshot(e.window.Closes())
	if !ok {
		return none
	}
	none.Indicators = snap
	side, reason := e.signal(snap)
	if side == SideFlat {
		none.Reason = ReasonNoSignal
		return none
	}
	last, _ := e.window.Last()
	return Decision{
		Kind:       DecisionEnter,
		Symbol:     e.symbol,
		Reason:     reason,
		At:         at,
		Side:       side,
		Price:      last.Close,
		Indicators: snap,
	}
}

// SizeEntry sets the quantity of an entry signal from capital. A quantity
// that rounds to zero turns it into a no-decision.
func (e *Engine) SizeEntry(d Decision, capital float64) (Decision, error) {
	if d.Kind != DecisionEnter {
		return d, nil
	}
	if err := checkCapital(capital); err != nil {
		return Decision{}, err
	}
	d.Quantity = e.rules.Quantity(capital, d.Price)
	if d.Quantity <= 0 {
		return Decision{Kind: DecisionNone, Symbol: d.Symbol, At: d.At, Reason: ReasonZeroQuantity, Indicators: d.Indicators}, nil
	}
	return d, nil
}

func checkCapital(capital float64) error {
	if math.IsNaN(capital) || math.IsInf(capital, 0) {
		return invalid("capital", "must be finite, got %v", capital)
	}
	return nil
}

func (e *Engine) signal(s IndicatorSnapshot) (PositionSide, Reason) {
	switch {
	case s.RSI < e.rules.RSIBuyThreshold && s.MACD > s.Signal && s.Trend == TrendUp:
		return SideLong, ReasonLongSignal
	case s.RSI > e.rules.RSISellThreshold && s.MACD < s.Signal && s.Trend == TrendDown:
		return SideShort, ReasonShortSignal
	}
	return SideFlat, ReasonNoSignal
}

// EvaluateExit checks the open position against the latest close. Must only
// be called while Open.
func (e *Engine) EvaluateExit(at time.Time) (Decision, error) {
	e.assertState(StateOpen, "exit evaluation")
	pos := *e.position
	last, ok := e.window.Last()
	if !ok {
		return Decision{}, fmt.Errorf("engine %s: open position with empty window", e.symbol)
	}
	d := Decision{
		Kind:     DecisionNone,
		Symbol:   e.symbol,
		Reason:   ReasonHolding,
		At:       at,
		Side:     pos.Side,
		Price:    last.Close,
		Quantity: pos.Quantity,
		PnL:      pos.UnrealizedPnL(last.Close),
	}
	if reason, hit := e.rules.ExitTrigger(pos, last.Close, at); hit {
		d.Kind = DecisionExit
		d.Reason = reason
	}
	return d, nil
}

// Commit applies an actionable decision. Exits return the closed trade.
func (e *Engine) Commit(d Decision) (*ClosedTrade, error) {
	if d.Kind != DecisionNone && d.Symbol != e.symbol {
		return nil, fmt.Errorf("engine %s: decision for %s", e.symbol, d.Symbol)
	}
	switch d.Kind {
	case DecisionEnter:
		e.assertState(StateFlat, "entry commit")
		e.position = &Position{
			Symbol:     e.symbol,
			Side:       d.Side,
			EntryPrice: d.Price,
			Quantity:   d.Quantity,
			EntryTime:  d.At,
		}
		e.log.Debug("position opened",
			zap.Time("at", d.At),
			zap.Stringer("side", d.Side),
			zap.Float64("price", d.Price),
			zap.Float64("qty", d.Quantity),
			zap.Float64("rsi", d.Indicators.RSI))
		return nil, nil
	case DecisionExit:
		e.assertState(StateOpen, "exit commit")
		trade := e.position.Close(d.Price, d.At, d.Reason)
		e.position = nil
		e.log.Debug("position closed",
			zap.Time("at", d.At),
			zap.Stringer("side", trade.Side),
			zap.Float64("price", trade.ExitPrice),
			zap.Float64("pnl", trade.PnL),
			zap.String("reason", string(trade.Reason)))
		return &trade, nil
	}
	return nil, nil
}

func (e *Engine) assertState(want State, op string) {
	if got := e.State(); got != want {
		panic(fmt.Sprintf("engine %s: %s requires state %s, have %s", e.symbol, op, want, got))
	}
}
