// Package clickhouse stores minute bars and closed trades in ClickHouse
package clickhouse

import (
	"context"
	"fmt"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

type Config struct {
	DSN      string
	Database string
	Table    string
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type Batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// Conn is the subset of the driver used here
type Conn interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string) (Batch, error)
	Ping(ctx context.Context) error
	Close() error
}

type driverConn struct{ driver.Conn }

func (c driverConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.Conn.Query(ctx, query, args...)
}

func (c driverConn) PrepareBatch(ctx context.Context, query string) (Batch, error) {
	return c.Conn.PrepareBatch(ctx, query)
}

type Client struct {
	conn   Conn
	cfg    Config
	logger *zap.Logger
}

// NewClient opens and pings a native-protocol connection from cfg.DSN
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	opts, err := ch.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if opts.Settings == nil {
		opts.Settings = ch.Settings{}
	}
	opts.Settings["max_execution_time"] = 60
	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return NewClientWithConn(driverConn{conn}, cfg, logger), nil
}

func NewClientWithConn(conn Conn, cfg Config, logger *zap.Logger) *Client {
	if cfg.Database == "" {
		cfg.Database = "market"
	}
	if cfg.Table == "" {
		cfg.Table = "minute_bars"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, cfg: cfg, logger: logger}
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) barsTable() string { return c.cfg.Database + "." + c.cfg.Table }

// EnsureSchema creates the database and the bar table when missing
func (c *Client) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.cfg.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol LowCardinality(String),
			interval LowCardinality(String),
			open_time_ms UInt64,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
	`, c.barsTable())
	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create bar table: %w", err)
	}
	return nil
}

// LoadBars reads the 1m bars of symbol in [from, to), oldest first
func (c *Client) LoadBars(ctx context.Context, symbol string, from, to time.Time) (engine.Series, error) {
	query := fmt.Sprintf(`
		SELECT open_time_ms, open, high, low, close
		FROM %s FINAL
		WHERE symbol = ? AND interval = '1m'
		AND open_time_ms >= ? AND open_time_ms < ?
		ORDER BY open_time_ms
	`, c.barsTable())
	rows, err := c.conn.Query(ctx, query, symbol, uint64(from.UnixMilli()), uint64(to.UnixMilli()))
	if err != nil {
		return engine.Series{}, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	series := engine.Series{Symbol: symbol}
	for rows.Next() {
		var ms uint64
		var b engine.Bar
		if err := rows.Scan(&ms, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return engine.Series{}, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		b.Timestamp = time.UnixMilli(int64(ms)).UTC()
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return engine.Series{}, fmt.Errorf("iterate bars %s: %w", symbol, err)
	}
	c.logger.Debug("loaded bars", zap.String("symbol", symbol), zap.Int("bars", len(series.Bars)))
	return series, nil
}

// LoadSeries loads every symbol for one backtest
func (c *Client) LoadSeries(ctx context.Context, symbols []string, from, to time.Time) ([]engine.Series, error) {
	out := make([]engine.Series, 0, len(symbols))
	for _, sym := range symbols {
		s, err := c.LoadBars(ctx, sym, from, to)
		if err != nil {
			return nil, err
		}
		if len(s.Bars) == 0 {
			return nil, fmt.Errorf("no bars for %s between %s and %s", sym, from.Format(time.RFC3339), to.Format(time.RFC3339))
		}
		out = append(out, s)
	}
	return out, nil
}
