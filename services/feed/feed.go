// Package feed delivers minute bars to the live runner and loads history for backtests
package feed

import (
	"context"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Event is one completed bar of one instrument
type Event struct {
	Symbol string     `json:"symbol"`
	Bar    engine.Bar `json:"bar"`
}

// Source yields bars one at a time. Finite sources return io.EOF when
// exhausted; errors wrapped in TransientError may be retried by the caller.
type Source interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}
