package clickhouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// TradeLedger buffers closed trades and writes them in batches
type TradeLedger struct {
	client    *Client
	table     string
	batchSize int

	mu     sync.Mutex
	buffer []engine.ClosedTrade
}

func (c *Client) TradeLedger(ctx context.Context, batchSize int) (*TradeLedger, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	l := &TradeLedger{
		client:    c,
		table:     c.cfg.Database + ".closed_trades",
		batchSize: batchSize,
		buffer:    make([]engine.ClosedTrade, 0, batchSize),
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id String,
			exit_time DateTime64(3),
			symbol LowCardinality(String),
			side LowCardinality(String),
			entry_price Float64,
			exit_price Float64,
			quantity Float64,
			elapsed_minutes Float64,
			pnl Float64,
			reason LowCardinality(String)
		)
		ENGINE = ReplacingMergeTree
		ORDER BY (symbol, exit_time, id)
	`, l.table)
	if err := c.conn.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create trade table: %w", err)
	}
	return l, nil
}

func (l *TradeLedger) Append(ctx context.Context, t engine.ClosedTrade) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buffer = append(l.buffer, t)
	if len(l.buffer) >= l.batchSize {
		return l.flush(ctx)
	}
	return nil
}

func (l *TradeLedger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flush(ctx)
}

func (l *TradeLedger) flush(ctx context.Context) error {
	if len(l.buffer) == 0 {
		return nil
	}
	batch, err := l.client.conn.PrepareBatch(ctx, "INSERT INTO "+l.table)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, t := range l.buffer {
		if err := batch.Append(
			t.ID, t.ExitTime.UTC(), t.Symbol, t.Side.String(),
			t.EntryPrice, t.ExitPrice, t.Quantity,
			t.ElapsedMinutes(), t.PnL, string(t.Reason),
		); err != nil {
			batch.Abort()
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	l.buffer = l.buffer[:0]
	return nil
}

func (l *TradeLedger) Close() error {
	return l.Flush(context.Background())
}
