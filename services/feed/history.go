package feed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/arrowpipeline"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/clickhouse"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// History loads the 1m bars of every symbol in [from, to).
// clickhouse.Client implements it.
type History interface {
	LoadSeries(ctx context.Context, symbols []string, from, to time.Time) ([]engine.Series, error)
}

// CSVDir serves minute_<symbol>.csv files from a directory
type CSVDir struct {
	Dir string
}

func (d CSVDir) LoadSeries(_ context.Context, symbols []string, from, to time.Time) ([]engine.Series, error) {
	all, err := LoadDir(d.Dir, symbols)
	if err != nil {
		return nil, err
	}
	return clip(all, from, to)
}

// ArrowFile serves an Arrow IPC file written by data_ingest
type ArrowFile struct {
	Path     string
	Pipeline *arrowpipeline.Pipeline
}

func (a ArrowFile) LoadSeries(_ context.Context, symbols []string, from, to time.Time) ([]engine.Series, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	all, err := a.Pipeline.ReadSeries(f)
	if err != nil {
		return nil, err
	}
	bySymbol := make(map[string]engine.Series, len(all))
	for _, s := range all {
		bySymbol[s.Symbol] = s
	}
	out := make([]engine.Series, 0, len(symbols))
	for _, sym := range symbols {
		s, ok := bySymbol[sym]
		if !ok {
			return nil, fmt.Errorf("%s: symbol %s not recorded", a.Path, sym)
		}
		out = append(out, s)
	}
	return clip(out, from, to)
}

func clip(series []engine.Series, from, to time.Time) ([]engine.Series, error) {
	out := make([]engine.Series, len(series))
	for i, s := range series {
		kept := engine.Series{Symbol: s.Symbol}
		for _, b := range s.Bars {
			if b.Timestamp.Before(from) || !b.Timestamp.Before(to) {
				continue
			}
			kept.Bars = append(kept.Bars, b)
		}
		if len(kept.Bars) == 0 {
			return nil, fmt.Errorf("no bars for %s between %s and %s", s.Symbol, from.Format(time.RFC3339), to.Format(time.RFC3339))
		}
		out[i] = kept
	}
	return out, nil
}

type HistoryConfig struct {
	Source     string // csv, arrow or clickhouse
	DataDir    string
	ArrowFile  string
	ArrowBatch int
	ClickHouse clickhouse.Config
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenHistory builds the bar source named by cfg.Source
func OpenHistory(ctx context.Context, cfg HistoryConfig, logger *zap.Logger) (History, io.Closer, error) {
	switch cfg.Source {
	case "", "csv":
		return CSVDir{Dir: cfg.DataDir}, nopCloser{}, nil
	case "arrow":
		if cfg.ArrowFile == "" {
			return nil, nil, fmt.Errorf("arrow source needs a file")
		}
		p := arrowpipeline.NewPipeline(arrowpipeline.Config{BatchSize: cfg.ArrowBatch}, logger)
		return ArrowFile{Path: cfg.ArrowFile, Pipeline: p}, nopCloser{}, nil
	case "clickhouse":
		c, err := clickhouse.NewClient(ctx, cfg.ClickHouse, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unknown history source %q", cfg.Source)
	}
}
