package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS closed_trades (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	quantity REAL NOT NULL,
	entry_time TEXT NOT NULL,
	elapsed_minutes REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol, timestamp);
`

// SQLite stores trades in an embedded database
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (l *SQLite) Append(ctx context.Context, t engine.ClosedTrade) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO closed_trades
			(id, timestamp, symbol, side, entry_price, exit_price, quantity, entry_time, elapsed_minutes, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ExitTime.UTC().Format(time.RFC3339Nano), t.Symbol, t.Side.String(),
		t.EntryPrice, t.ExitPrice, t.Quantity, t.EntryTime.UTC().Format(time.RFC3339Nano),
		t.ElapsedMinutes(), t.PnL, string(t.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

// Summary is the aggregate of the trades of one symbol, or all when symbol is empty
type Summary struct {
	Trades int
	Wins   int
	PnL    float64
}

func (l *SQLite) Summary(ctx context.Context, symbol string) (Summary, error) {
	var s Summary
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0), COALESCE(SUM(pnl), 0)
		FROM closed_trades WHERE ? = '' OR symbol = ?`, symbol, symbol,
	).Scan(&s.Trades, &s.Wins, &s.PnL)
	return s, err
}

func (l *SQLite) Close() error { return l.db.Close() }
