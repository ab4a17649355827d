// data_ingest loads minute_<symbol>.csv files into ClickHouse or packs them
// into one Arrow IPC file for replay
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/arrowpipeline"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/clickhouse"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/config"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/logging"
)

type options struct {
	dataDir string
	symbols []string
	target  string
	out     string
	derive  []string
}

func main() {
	var o options
	root := &cobra.Command{
		Use:   "data_ingest",
		Short: "Load minute bar CSVs into ClickHouse or an Arrow file",
		RunE:  func(*cobra.Command, []string) error { return run(o) },
	}
	f := root.Flags()
	f.StringVar(&o.dataDir, "data-dir", "", "Directory of minute_<symbol>.csv files (defaults to DATA_DIR)")
	f.StringSliceVar(&o.symbols, "symbols", nil, "Symbols to load (defaults to SYMBOLS)")
	f.StringVar(&o.target, "target", "clickhouse", "clickhouse or arrow")
	f.StringVar(&o.out, "out", "bars.arrow", "Output file for --target arrow")
	f.StringSliceVar(&o.derive, "derive", nil, "Intervals to aggregate after a ClickHouse load, e.g. 5m,15m")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if o.dataDir == "" {
		o.dataDir = cfg.Feed.DataDir
	}
	if len(o.symbols) == 0 {
		o.symbols = cfg.Feed.Symbols
	}
	series, err := feed.LoadDir(o.dataDir, o.symbols)
	if err != nil {
		return err
	}
	for _, s := range series {
		bad := 0
		for _, b := range s.Bars {
			if b.Validate() != nil {
				bad++
			}
		}
		if bad > 0 {
			logger.Warn("series has invalid bars", zap.String("symbol", s.Symbol), zap.Int("bad", bad))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch o.target {
	case "arrow":
		return writeArrow(o.out, series, cfg.Arrow.BatchSize, logger)
	case "clickhouse":
		return ingest(ctx, cfg, series, o.derive, logger)
	default:
		return fmt.Errorf("unknown --target %q", o.target)
	}
}

func writeArrow(path string, series []engine.Series, batch int, logger *zap.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	p := arrowpipeline.NewPipeline(arrowpipeline.Config{BatchSize: batch}, logger)
	if err := p.WriteSeries(f, series); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("wrote arrow file", zap.String("path", path), zap.Int("symbols", len(series)))
	return nil
}

func ingest(ctx context.Context, cfg *config.Config, series []engine.Series, derive []string, logger *zap.Logger) error {
	client, err := clickhouse.NewClient(ctx, clickhouse.Config{
		DSN:      cfg.ClickHouse.DSN,
		Database: cfg.ClickHouse.Database,
		Table:    cfg.ClickHouse.Table,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.EnsureSchema(ctx); err != nil {
		return err
	}
	total := 0
	for _, s := range series {
		n, err := client.IngestBars(ctx, s)
		if err != nil {
			return err
		}
		total += n
		for _, iv := range derive {
			minutes, err := intervalMinutes(iv)
			if err != nil {
				return err
			}
			if err := client.DeriveInterval(ctx, s.Symbol, iv, minutes); err != nil {
				return err
			}
		}
	}
	logger.Info("ingest complete", zap.Int("rows", total), zap.Strings("derived", derive))
	return nil
}

func intervalMinutes(iv string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(strings.TrimSuffix(iv, "m"), "%d", &n); err != nil || !strings.HasSuffix(iv, "m") {
		return 0, fmt.Errorf("interval %q: want <minutes>m", iv)
	}
	return n, nil
}
