// Package ledger persists closed trades
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Ledger records every realized round trip. clickhouse.TradeLedger also
// satisfies it.
type Ledger interface {
	Append(ctx context.Context, trade engine.ClosedTrade) error
	Close() error
}

var Columns = []string{"timestamp", "symbol", "side", "entry_price", "exit_price", "quantity", "elapsed_minutes", "pnl"}

// Open builds a file-backed ledger: driver is csv or sqlite
func Open(driver, path string) (Ledger, error) {
	switch driver {
	case "", "csv":
		return OpenCSV(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", driver)
	}
}

// row renders a trade with elapsed minutes and PnL rounded to cents
func row(t engine.ClosedTrade) []string {
	return []string{
		t.ExitTime.UTC().Format(time.RFC3339),
		t.Symbol,
		t.Side.String(),
		decimal.NewFromFloat(t.EntryPrice).String(),
		decimal.NewFromFloat(t.ExitPrice).String(),
		decimal.NewFromFloat(t.Quantity).String(),
		decimal.NewFromFloat(t.ElapsedMinutes()).StringFixed(2),
		decimal.NewFromFloat(t.PnL).StringFixed(2),
	}
}

// Discard drops every trade
type Discard struct{}

func (Discard) Append(context.Context, engine.ClosedTrade) error { return nil }
func (Discard) Close() error                                     { return nil }
