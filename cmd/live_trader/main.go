// live_trader runs one rule set against a live (or replayed) bar feed
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/broker"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/clickhouse"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/config"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/ledger"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/live"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/logging"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/market"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/strategies"
)

type options struct {
	strategy     string
	paper        bool
	paperCapital float64
	healthEvery  string
}

func main() {
	var o options
	root := &cobra.Command{
		Use:   "live_trader",
		Short: "Trade a scalping rule set on live minute bars",
		Long: `live_trader subscribes to minute bars (FEED=stream|poll|replay), evaluates
entries and exits per symbol, submits market/day orders and appends every
closed trade to the trade ledger.`,
		RunE: func(*cobra.Command, []string) error { return run(o) },
	}
	f := root.Flags()
	f.StringVar(&o.strategy, "strategy", strategies.LiveBalanced.Name, "Rule set name (preset or STRATEGIES_FILE entry)")
	f.BoolVar(&o.paper, "paper", false, "Use the in-process paper broker instead of Alpaca")
	f.Float64Var(&o.paperCapital, "paper-capital", 100000, "Buying power of the paper broker")
	f.StringVar(&o.healthEvery, "health", "@every 1m", "Cron schedule of the health report")

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

	rules, err := strategies.Resolve(cfg.StrategiesFile, []string{o.strategy})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var b broker.Broker
	if o.paper {
		b = broker.NewPaper(o.paperCapital)
	} else {
		if cfg.Broker.APIKey == "" || cfg.Broker.SecretKey == "" {
			return fmt.Errorf("ALPACA_API_KEY and ALPACA_SECRET_KEY are required (or use --paper)")
		}
		b = broker.NewAlpaca(cfg.Broker.BaseURL, cfg.Broker.APIKey, cfg.Broker.SecretKey)
	}

	src, err := openFeed(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	l, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	var session *market.Session
	if cfg.Feed.Kind != "replay" {
		s, err := market.DefaultCalendar().Lookup(cfg.Feed.Market)
		if err != nil {
			return err
		}
		session = &s
	}
	for _, st := range market.DefaultCalendar().OpenAt(time.Now()) {
		logger.Info("market open", zap.String("status", st.String()))
	}

	runner, err := live.NewRunner(live.Config{
		Symbols:    cfg.Feed.Symbols,
		Rules:      rules[0],
		WindowSize: cfg.Engine.WindowSize,
		Session:    session,
	}, src, b, l, logger)
	if err != nil {
		return err
	}

	sched := live.NewScheduler(logger)
	if err := sched.AddJob(o.healthEvery, live.NewHealthJob(runner, b, session, 5*time.Minute, logger)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	return runner.Run(ctx)
}

func openFeed(ctx context.Context, cfg *config.Config, logger *zap.Logger) (feed.Source, error) {
	switch cfg.Feed.Kind {
	case "stream":
		return feed.NewStreamSource(feed.StreamConfig{
			URL:       cfg.Broker.StreamURL,
			APIKey:    cfg.Broker.APIKey,
			SecretKey: cfg.Broker.SecretKey,
			Symbols:   cfg.Feed.Symbols,
			Retry:     feed.DefaultRetryPolicy(),
		}, logger), nil
	case "poll":
		if cfg.Feed.TwelveData == "" {
			return nil, fmt.Errorf("TWELVEDATA_API_KEY is required for FEED=poll")
		}
		return feed.NewPoller(feed.NewTwelveData(cfg.Feed.TwelveData), feed.PollerConfig{
			Symbols:  cfg.Feed.Symbols,
			Interval: cfg.Feed.PollInterval,
			Retry:    feed.DefaultRetryPolicy(),
		}, logger), nil
	case "replay":
		series, err := feed.CSVDir{Dir: cfg.Feed.DataDir}.LoadSeries(ctx, cfg.Feed.Symbols, time.Unix(0, 0), time.Now())
		if err != nil {
			return nil, err
		}
		return feed.NewReplay(series), nil
	default:
		return nil, fmt.Errorf("unknown FEED %q", cfg.Feed.Kind)
	}
}

func openLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ledger.Ledger, error) {
	if cfg.Ledger.Driver != "clickhouse" {
		return ledger.Open(cfg.Ledger.Driver, cfg.Ledger.Path)
	}
	client, err := clickhouse.NewClient(ctx, clickhouse.Config{
		DSN:      cfg.ClickHouse.DSN,
		Database: cfg.ClickHouse.Database,
		Table:    cfg.ClickHouse.Table,
	}, logger)
	if err != nil {
		return nil, err
	}
	tl, err := client.TradeLedger(ctx, 1)
	if err != nil {
		client.Close()
		return nil, err
	}
	return clickhouseLedger{tl, client}, nil
}

type clickhouseLedger struct {
	*clickhouse.TradeLedger
	client *clickhouse.Client
}

func (l clickhouseLedger) Close() error {
	err := l.TradeLedger.Close()
	if cerr := l.client.Close(); err == nil {
		err = cerr
	}
	return err
}
