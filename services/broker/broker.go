// Package broker realizes engine decisions as market orders
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

var (
	ErrRejected       = errors.New("order rejected")
	ErrTradingBlocked = errors.New("account trading blocked")
)

// Fill is the broker's acknowledgement of a submitted order
type Fill struct {
	OrderID     string           `json:"id"`
	ClientID    string           `json:"client_order_id"`
	Symbol      string           `json:"symbol"`
	Side        engine.TradeSide `json:"side"`
	Quantity    float64          `json:"qty"`
	Status      string           `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

type Broker interface {
	BuyingPower(ctx context.Context) (float64, error)
	Submit(ctx context.Context, order engine.Order) (Fill, error)
	Ping(ctx context.Context) error
}
