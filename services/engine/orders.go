package engine

type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

type OrderType string

const OrderMarket OrderType = "market"

type TimeInForce string

const TIFDay TimeInForce = "day"

// Order is what the broker receives for an entry or exit decision
type Order struct {
	ClientID    string      `json:"client_order_id,omitempty"`
	Symbol      string      `json:"symbol"`
	Side        TradeSide   `json:"side"`
	Quantity    float64     `json:"qty"`
	Type        OrderType   `json:"type"`
	TimeInForce TimeInForce `json:"time_in_force"`
}

// Order converts an actionable decision into a market/day order
func (d Decision) Order() (Order, bool) {
	var side TradeSide
	switch d.Kind {
	case DecisionEnter:
		side = d.Side.EntrySide()
	case DecisionExit:
		side = d.Side.ExitSide()
	default:
		return Order{}, false
	}
	return Order{
		Symbol:      d.Symbol,
		Side:        side,
		Quantity:    d.Quantity,
		Type:        OrderMarket,
		TimeInForce: TIFDay,
	}, true
}
