package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, r RuleSet) *Engine {
	t.Helper()
	e, err := NewEngine("AAPL", r)
	require.NoError(t, err)
	return e
}

func feed(t *testing.T, e *Engine, bars []Bar) {
	t.Helper()
	for _, b := range bars {
		require.NoError(t, e.Append(b))
	}
}

// openLong feeds 50 strictly rising closes and commits the long entry
func openLong(t *testing.T, e *Engine) Decision {
	t.Helper()
	bars := minuteBars(t0, rising(50, 100, 0.1)...)
	feed(t, e, bars)
	d, err := e.EvaluateEntry(bars[len(bars)-1].Timestamp, 5000)
	require.NoError(t, err)
	require.Equal(t, DecisionEnter, d.Kind)
	_, err = e.Commit(d)
	require.NoError(t, err)
	return d
}

func TestEntryNeedsWarmup(t *testing.T) {
	e := newTestEngine(t, testRules())
	bars := minuteBars(t0, rising(49, 100, 0.1)...)
	feed(t, e, bars)
	d, err := e.EvaluateEntry(bars[48].Timestamp, 5000)
	require.NoError(t, err)
	assert.Equal(t, DecisionNone, d.Kind)
	assert.Equal(t, ReasonInsufficientData, d.Reason)
	assert.Equal(t, StateFlat, e.State())
}

func TestRisingSeriesOpensLong(t *testing.T) {
	e := newTestEngine(t, testRules())
	d := openLong(t, e)

	assert.Equal(t, SideLong, d.Side)
	assert.Equal(t, ReasonLongSignal, d.Reason)
	assert.InDelta(t, 104.9, d.Price, 1e-9)
	assert.Equal(t, 0.0, d.Indicators.RSI)
	assert.Equal(t, TrendUp, d.Indicators.Trend)
	assert.InDelta(t, 4.77, d.Quantity, 1e-9)
	assert.Equal(t, StateOpen, e.State())

	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, d.At, pos.EntryTime)
}

func TestEntrySignalThenSize(t *testing.T) {
	e := newTestEngine(t, testRules())
	bars := minuteBars(t0, rising(50, 100, 0.1)...)
	feed(t, e, bars[:49])
	assert.Equal(t, ReasonInsufficientData, e.EntrySignal(bars[48].Timestamp).Reason)

	feed(t, e, bars[49:])
	sig := e.EntrySignal(bars[49].Timestamp)
	require.Equal(t, DecisionEnter, sig.Kind)
	assert.Zero(t, sig.Quantity)

	d, err := e.SizeEntry(sig, 5000)
	require.NoError(t, err)
	assert.InDelta(t, 4.77, d.Quantity, 1e-9)

	d, err = e.SizeEntry(sig, 1)
	require.NoError(t, err)
	assert.Equal(t, DecisionNone, d.Kind)
	assert.Equal(t, ReasonZeroQuantity, d.Reason)
	assert.Equal(t, StateFlat, e.State())
}

func TestTakeProfitExit(t *testing.T) {
	e := newTestEngine(t, testRules())
	d := openLong(t, e)

	next := Bar{Timestamp: d.At.Add(time.Minute), Open: 105.3, High: 105.3, Low: 105.3, Close: d.Price * 1.003}
	require.NoError(t, e.Append(next))
	exit, err := e.EvaluateExit(next.Timestamp)
	require.NoError(t, err)
	require.Equal(t, DecisionExit, exit.Kind)
	assert.Equal(t, ReasonTakeProfit, exit.Reason)

	trade, err := e.Commit(exit)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Greater(t, trade.PnL, 0.0)
	assert.True(t, trade.Win())
	assert.Equal(t, time.Minute, trade.Held)
	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, StateFlat, e.State())
}

func TestMaxHoldExitAtEightMinutes(t *testing.T) {
	e := newTestEngine(t, testRules())
	d := openLong(t, e)

	for i := 1; i <= 8; i++ {
		at := d.At.Add(time.Duration(i) * time.Minute)
		require.NoError(t, e.Append(Bar{Timestamp: at, Open: d.Price, High: d.Price, Low: d.Price, Close: d.Price}))
		exit, err := e.EvaluateExit(at)
		require.NoError(t, err)
		if i < 8 {
			require.Equal(t, DecisionNone, exit.Kind, "minute %d", i)
			assert.Equal(t, ReasonHolding, exit.Reason)
			continue
		}
		require.Equal(t, DecisionExit, exit.Kind)
		assert.Equal(t, ReasonMaxHold, exit.Reason)
		trade, err := e.Commit(exit)
		require.NoError(t, err)
		assert.Equal(t, 8*time.Minute, trade.Held)
		assert.Equal(t, 0.0, trade.PnL)
		assert.False(t, trade.Win())
	}
}

func TestUncommittedDecisionLeavesStateUnchanged(t *testing.T) {
	e := newTestEngine(t, testRules())
	bars := minuteBars(t0, rising(50, 100, 0.1)...)
	feed(t, e, bars)
	d, err := e.EvaluateEntry(bars[49].Timestamp, 5000)
	require.NoError(t, err)
	require.True(t, d.Actionable())

	// e.g. the broker rejected the order
	assert.Equal(t, StateFlat, e.State())
	again, err := e.EvaluateEntry(bars[49].Timestamp, 5000)
	require.NoError(t, err)
	assert.Equal(t, d, again)
}

func TestZeroQuantityIsNoDecision(t *testing.T) {
	e := newTestEngine(t, testRules())
	bars := minuteBars(t0, rising(50, 100, 0.1)...)
	feed(t, e, bars)
	d, err := e.EvaluateEntry(bars[49].Timestamp, 0.01)
	require.NoError(t, err)
	assert.Equal(t, DecisionNone, d.Kind)
	assert.Equal(t, ReasonZeroQuantity, d.Reason)
}

func TestStateViolationsPanic(t *testing.T) {
	e := newTestEngine(t, testRules())
	assert.Panics(t, func() { _, _ = e.EvaluateExit(t0) })

	d := openLong(t, e)
	assert.Panics(t, func() { _, _ = e.EvaluateEntry(d.At, 5000) })
	assert.Panics(t, func() { _, _ = e.Commit(d) }, "second entry commit")

	exit := Decision{Kind: DecisionExit, Symbol: "AAPL", Side: SideLong, Price: d.Price, At: d.At, Reason: ReasonMaxHold}
	_, err := e.Commit(exit)
	require.NoError(t, err)
	assert.Panics(t, func() { _, _ = e.Commit(exit) }, "second exit commit")
}

func TestCommitRejectsForeignDecision(t *testing.T) {
	e := newTestEngine(t, testRules())
	_, err := e.Commit(Decision{Kind: DecisionEnter, Symbol: "MSFT"})
	assert.Error(t, err)
	assert.Equal(t, StateFlat, e.State())
}

func TestShortSignalAndExit(t *testing.T) {
	e := newTestEngine(t, testRules())
	side, reason := e.signal(IndicatorSnapshot{RSI: 60, MACD: -0.2, Signal: -0.1, Trend: TrendDown})
	assert.Equal(t, SideShort, side)
	assert.Equal(t, ReasonShortSignal, reason)

	side, _ = e.signal(IndicatorSnapshot{RSI: 50, MACD: -0.2, Signal: -0.1, Trend: TrendDown})
	assert.Equal(t, SideFlat, side)

	feed(t, e, minuteBars(t0, 100))
	_, err := e.Commit(Decision{Kind: DecisionEnter, Symbol: "AAPL", Side: SideShort, Price: 100, Quantity: 5, At: t0})
	require.NoError(t, err)
	require.NoError(t, e.Append(Bar{Timestamp: t0.Add(time.Minute), Open: 99.7, High: 99.7, Low: 99.7, Close: 99.7}))

	exit, err := e.EvaluateExit(t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, DecisionExit, exit.Kind)
	assert.Equal(t, ReasonTakeProfit, exit.Reason)
	assert.InDelta(t, 1.5, exit.PnL, 1e-9)

	o, ok := exit.Order()
	require.True(t, ok)
	assert.Equal(t, TradeSideBuy, o.Side)
	assert.Equal(t, OrderMarket, o.Type)
	assert.Equal(t, TIFDay, o.TimeInForce)
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine("", testRules())
	assert.Error(t, err)

	bad := testRules()
	bad.StopLossPct = 2
	_, err = NewEngine("AAPL", bad)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = NewEngine("AAPL", testRules(), WithWindowSize(40))
	assert.ErrorAs(t, err, &verr)
}
