// strategy_runner replays minute bars through one or more rule sets and
// prints the per-strategy summary
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/clickhouse"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/config"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/ledger"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/logging"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/strategies"
)

var version = "dev"

type options struct {
	source         string
	dataDir        string
	arrowFile      string
	symbols        []string
	names          []string
	strategiesFile string
	from, to       string
	capital        float64
	workers        int
	tradesDir      string
	manifestOut    string
	minBarsPerSec  float64
	events         bool
}

func main() {
	var o options
	root := &cobra.Command{
		Use:   "strategy_runner",
		Short: "Backtest scalping rule sets over minute bars",
		Long: `strategy_runner loads minute bars for every symbol, replays them in
lock-step through each rule set and prints trades, wins, losses, PnL and
ending capital per strategy.`,
		RunE: func(cmd *cobra.Command, _ []string) error { return run(cmd, o) },
	}
	f := root.Flags()
	f.StringVar(&o.source, "source", "csv", "Bar source: csv, arrow or clickhouse")
	f.StringVar(&o.dataDir, "data-dir", "", "Directory of minute_<symbol>.csv files (defaults to DATA_DIR)")
	f.StringVar(&o.arrowFile, "arrow-file", "", "Arrow IPC file for --source arrow")
	f.StringSliceVar(&o.symbols, "symbols", nil, "Symbols to replay (defaults to SYMBOLS)")
	f.StringSliceVar(&o.names, "strategies", nil, "Strategy names (defaults to every strategy in the file, or the four presets)")
	f.StringVar(&o.strategiesFile, "strategies-file", "", "YAML rule sets (defaults to STRATEGIES_FILE)")
	f.StringVar(&o.from, "from", "", "Start time, RFC 3339 or YYYY-MM-DD")
	f.StringVar(&o.to, "to", "", "End time (exclusive)")
	f.Float64Var(&o.capital, "capital", 0, "Starting capital (defaults to STARTING_CAPITAL)")
	f.IntVar(&o.workers, "workers", 0, "Concurrent runs (defaults to WORKERS, 0 = GOMAXPROCS)")
	f.StringVar(&o.tradesDir, "trades-dir", "", "Write <strategy>_trades.csv per strategy into this directory")
	f.StringVar(&o.manifestOut, "manifest", "", "Write run manifests as JSON to this file")
	f.Float64Var(&o.minBarsPerSec, "min-bars-per-sec", 0, "Warn when replay throughput falls below this")
	f.BoolVar(&o.events, "events", false, "Record the entry/exit event log")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, o options) error {
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
	if o.strategiesFile == "" {
		o.strategiesFile = cfg.StrategiesFile
	}
	rules, err := strategies.Resolve(o.strategiesFile, o.names)
	if err != nil {
		return err
	}
	from, to, err := parseRange(o.from, o.to)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, closer, err := feed.OpenHistory(ctx, feed.HistoryConfig{
		Source:     o.source,
		DataDir:    o.dataDir,
		ArrowFile:  o.arrowFile,
		ArrowBatch: cfg.Arrow.BatchSize,
		ClickHouse: clickhouse.Config{DSN: cfg.ClickHouse.DSN, Database: cfg.ClickHouse.Database, Table: cfg.ClickHouse.Table},
	}, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	series, err := history.LoadSeries(ctx, o.symbols, from, to)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	simCfg := cfg.SimConfig()
	if cmd.Flags().Changed("capital") {
		simCfg.StartingCapital = o.capital
	}
	if cmd.Flags().Changed("workers") {
		simCfg.Workers = o.workers
	}
	simCfg.RecordEvents = o.events
	sim, err := engine.NewSimulator(simCfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting backtest",
		zap.Strings("symbols", o.symbols),
		zap.Int("strategies", len(rules)),
		zap.String("source", o.source),
		zap.Float64("starting_capital", simCfg.StartingCapital))

	mon := engine.NewPerformanceMonitor(engine.SLOConfig{MinBarsPerSec: o.minBarsPerSec})
	start := time.Now()
	results, err := sim.RunAll(ctx, series, rules)
	if err != nil {
		return err
	}
	bars := 0
	for _, r := range results {
		bars += r.Steps * len(series)
	}
	bench := mon.Record("backtest", time.Since(start), bars)
	logger.Info("Backtest completed",
		zap.Duration("elapsed", bench.Duration),
		zap.Float64("bars_per_sec", bench.BarsPerSec))
	for _, v := range mon.CheckSLOs() {
		logger.Warn("throughput below target", zap.String("detail", v))
	}

	fmt.Println()
	if err := engine.WriteSummary(os.Stdout, results); err != nil {
		return err
	}
	if o.tradesDir != "" {
		if err := writeTrades(ctx, o.tradesDir, results); err != nil {
			return err
		}
	}
	if o.manifestOut != "" {
		if err := writeManifests(o.manifestOut, cfg.Snapshot(version), results); err != nil {
			return err
		}
	}
	return nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, end := time.Unix(0, 0).UTC(), time.Now().UTC()
	var err error
	if from != "" {
		if start, err = feed.ParseTimestamp(from); err != nil {
			if start, err = time.Parse(time.DateOnly, from); err != nil {
				return start, end, fmt.Errorf("--from: %w", err)
			}
		}
	}
	if to != "" {
		if end, err = feed.ParseTimestamp(to); err != nil {
			if end, err = time.Parse(time.DateOnly, to); err != nil {
				return start, end, fmt.Errorf("--to: %w", err)
			}
		}
	}
	if !end.After(start) {
		return start, end, fmt.Errorf("--to must be after --from")
	}
	return start, end, nil
}

func writeTrades(ctx context.Context, dir string, results []engine.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, r := range results {
		path := filepath.Join(dir, r.Name+"_trades.csv")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		l, err := ledger.Open("csv", path)
		if err != nil {
			return err
		}
		for _, t := range r.ClosedTrades {
			if err := l.Append(ctx, t); err != nil {
				l.Close()
				return err
			}
		}
		if err := l.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeManifests(path string, snap *config.ConfigSnapshot, results []engine.RunResult) error {
	manifests := make([]config.RunManifest, len(results))
	for i, r := range results {
		manifests[i] = config.NewRunManifest(snap, r)
	}
	data, err := json.MarshalIndent(manifests, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
