package engine

const (
	DefaultRSIPeriod    = 14
	DefaultMACDFast     = 12
	DefaultMACDSlow     = 26
	DefaultMACDSignal   = 9
	DefaultTrendFast    = 20
	DefaultTrendSlow    = 50
	DefaultMinEntryBars = 50
)

type Trend int

const (
	TrendNeutral Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "neutral"
	}
}

// IndicatorParams holds the lookbacks used by the decision engine
type IndicatorParams struct {
	RSIPeriod  int `json:"rsi_period" yaml:"rsi_period"`
	MACDFast   int `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow   int `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal int `json:"macd_signal" yaml:"macd_signal"`
	TrendFast  int `json:"trend_fast" yaml:"trend_fast"`
	TrendSlow  int `json:"trend_slow" yaml:"trend_slow"`
}

func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{
		RSIPeriod:  DefaultRSIPeriod,
		MACDFast:   DefaultMACDFast,
		MACDSlow:   DefaultMACDSlow,
		MACDSignal: DefaultMACDSignal,
		TrendFast:  DefaultTrendFast,
		TrendSlow:  DefaultTrendSlow,
	}
}

func (p IndicatorParams) Validate() error {
	switch {
	case p.RSIPeriod < 2:
		return invalid("rsi_period", "must be at least 2, got %d", p.RSIPeriod)
	case p.MACDFast < 1 || p.MACDSlow <= p.MACDFast:
		return invalid("macd_slow", "must exceed macd_fast (%d/%d)", p.MACDFast, p.MACDSlow)
	case p.MACDSignal < 1:
		return invalid("macd_signal", "must be positive, got %d", p.MACDSignal)
	case p.TrendFast < 1 || p.TrendSlow <= p.TrendFast:
		return invalid("trend_slow", "must exceed trend_fast (%d/%d)", p.TrendFast, p.TrendSlow)
	}
	return nil
}

// Warmup is the number of closes needed before every indicator is available
func (p IndicatorParams) Warmup() int {
	n := p.RSIPeriod
	for _, w := range []int{p.MACDSlow, p.MACDSignal, p.TrendSlow} {
		if w > n {
			n = w
		}
	}
	return n
}

// IndicatorSnapshot is the indicator state at the latest close
type IndicatorSnapshot struct {
	RSI    float64 `json:"rsi"`
	MACD   float64 `json:"macd"`
	Signal float64 `json:"signal"`
	Trend  Trend   `json:"trend"`
}

// Snapshot computes all indicators with the default lookbacks
func Snapshot(closes []float64) (IndicatorSnapshot, bool) {
	return DefaultIndicatorParams().Snapshot(closes)
}

func (p IndicatorParams) Snapshot(closes []float64) (IndicatorSnapshot, bool) {
	rsi, ok := RSI(closes, p.RSIPeriod)
	if !ok {
		return IndicatorSnapshot{}, false
	}
	macd, signal, ok := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if !ok {
		return IndicatorSnapshot{}, false
	}
	trend, ok := TrendOf(closes, p.TrendFast, p.TrendSlow)
	if !ok {
		return IndicatorSnapshot{}, false
	}
	return IndicatorSnapshot{RSI: rsi, MACD: macd, Signal: signal, Trend: trend}, true
}

// RSI over the last period closes using plain sums of gains and losses.
// When there are no losses RS is taken as 0.
func RSI(closes []float64, period int) (float64, bool) {
	if period < 2 || len(closes) < period {
		return 0, false
	}
	tail := closes[len(closes)-period:]
	var gains, losses float64
	for i := 1; i < len(tail); i++ {
		switch d := tail[i] - tail[i-1]; {
		case d > 0:
			gains += d
		case d < 0:
			losses -= d
		}
	}
	rs := 0.0
	if losses != 0 {
		rs = gains / losses
	}
	return 100 - 100/(1+rs), true
}

// EWMASeries is the bias-adjusted exponentially weighted mean with
// alpha = 2/(span+1), evaluated at every index. Nil when len < span.
func EWMASeries(values []float64, span int) []float64 {
	if span < 1 || len(values) < span {
		return nil
	}
	decay := 1 - 2/(float64(span)+1)
	out := make([]float64, len(values))
	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// EWMA is the latest value of EWMASeries
func EWMA(values []float64, span int) (float64, bool) {
	s := EWMASeries(values, span)
	if s == nil {
		return 0, false
	}
	return s[len(s)-1], true
}

// MACD returns the latest MACD line and signal line values
func MACD(closes []float64, fast, slow, signal int) (float64, float64, bool) {
	if len(closes) < slow || len(closes) < fast {
		return 0, 0, false
	}
	f := EWMASeries(closes, fast)
	s := EWMASeries(closes, slow)
	line := make([]float64, len(closes))
	for i := range line {
		line[i] = f[i] - s[i]
	}
	sig := EWMASeries(line, signal)
	if sig == nil {
		return 0, 0, false
	}
	return line[len(line)-1], sig[len(sig)-1], true
}

// TrendOf compares the fast and slow EWMA at the latest close
func TrendOf(closes []float64, fast, slow int) (Trend, bool) {
	if len(closes) < slow {
		return TrendNeutral, false
	}
	f, ok := EWMA(closes, fast)
	if !ok {
		return TrendNeutral, false
	}
	s, _ := EWMA(closes, slow)
	switch {
	case f > s:
		return TrendUp, true
	case f < s:
		return TrendDown, true
	default:
		return TrendNeutral, true
	}
}
