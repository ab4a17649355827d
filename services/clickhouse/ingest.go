package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// IngestBars inserts a series as 1m bars. Re-ingesting the same minutes
// replaces them since every batch carries a newer version.
func (c *Client) IngestBars(ctx context.Context, s engine.Series) (int, error) {
	if len(s.Bars) == 0 {
		return 0, nil
	}
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", c.barsTable()))
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	ver := uint64(now.UnixNano())
	for _, b := range s.Bars {
		if err := b.Validate(); err != nil {
			batch.Abort()
			return 0, fmt.Errorf("%s: %w", s.Symbol, err)
		}
		if err := batch.Append(
			s.Symbol, "1m",
			uint64(b.Timestamp.UnixMilli()),
			b.Open, b.High, b.Low, b.Close,
			now, ver,
		); err != nil {
			batch.Abort()
			return 0, fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("batch send: %w", err)
	}
	c.logger.Info("ingested bars", zap.String("symbol", s.Symbol), zap.Int("rows", len(s.Bars)))
	return len(s.Bars), nil
}

// DeriveInterval aggregates the 1m bars of symbol into an N-minute interval
func (c *Client) DeriveInterval(ctx context.Context, symbol, interval string, minutes int) error {
	if minutes <= 1 {
		return fmt.Errorf("derive %s: minutes must exceed 1", interval)
	}
	step := uint64(minutes) * 60000
	query := fmt.Sprintf(`
		INSERT INTO %[1]s
		SELECT
			symbol,
			'%[2]s' AS interval,
			intDiv(open_time_ms, %[3]d) * %[3]d AS bucket_ms,
			argMin(open, open_time_ms) AS open,
			max(high) AS high,
			min(low) AS low,
			argMax(close, open_time_ms) AS close,
			now64(3) AS ingested_at,
			toUInt64(now64()) AS version
		FROM %[1]s FINAL
		WHERE symbol = ? AND interval = '1m'
		GROUP BY symbol, bucket_ms
	`, c.barsTable(), interval, step)
	if err := c.conn.Exec(ctx, query, symbol); err != nil {
		return fmt.Errorf("derive %s %s: %w", symbol, interval, err)
	}
	return nil
}
