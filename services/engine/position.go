package engine

import (
	"time"

	"github.com/google/uuid"
)

type PositionSide int

const (
	SideFlat PositionSide = iota
	SideLong
	SideShort
)

func (s PositionSide) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "flat"
	}
}

// EntrySide is the order side that opens a position on this side
func (s PositionSide) EntrySide() TradeSide {
	if s == SideShort {
		return TradeSideSell
	}
	return TradeSideBuy
}

// ExitSide is the order side that closes a position on this side
func (s PositionSide) ExitSide() TradeSide {
	if s == SideShort {
		return TradeSideBuy
	}
	return TradeSideSell
}

// Position is an open position of one instrument
type Position struct {
	Symbol     string       `json:"symbol"`
	Side       PositionSide `json:"side"`
	EntryPrice float64      `json:"entry_price"`
	Quantity   float64      `json:"quantity"`
	EntryTime  time.Time    `json:"entry_time"`
}

// UnrealizedPnL at price, sign flipped for shorts
func (p Position) UnrealizedPnL(price float64) float64 {
	pnl := (price - p.EntryPrice) * p.Quantity
	if p.Side == SideShort {
		return -pnl
	}
	return pnl
}

func (p Position) Held(at time.Time) time.Duration { return at.Sub(p.EntryTime) }

// Close realizes the position at price
func (p Position) Close(price float64, at time.Time, reason Reason) ClosedTrade {
	return ClosedTrade{
		ID:         uuid.NewString(),
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  price,
		Quantity:   p.Quantity,
		EntryTime:  p.EntryTime,
		ExitTime:   at,
		Held:       p.Held(at),
		PnL:        p.UnrealizedPnL(price),
		Reason:     reason,
	}
}

// ClosedTrade is the immutable record of a realized round trip
type ClosedTrade struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Side       PositionSide  `json:"side"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	Quantity   float64       `json:"quantity"`
	EntryTime  time.Time     `json:"entry_time"`
	ExitTime   time.Time     `json:"exit_time"`
	Held       time.Duration `json:"held"`
	PnL        float64       `json:"pnl"`
	Reason     Reason        `json:"reason"`
}

func (t ClosedTrade) ElapsedMinutes() float64 { return t.Held.Minutes() }

func (t ClosedTrade) Win() bool { return t.PnL > 0 }
