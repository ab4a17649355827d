// data_generator writes synthetic minute_<symbol>.csv files for replays
package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
)

type options struct {
	out     string
	symbols []string
	bars    int
	start   string
	price   float64
	seed    int64
}

func main() {
	var o options
	root := &cobra.Command{
		Use:   "data_generator",
		Short: "Generate random-walk minute bars with trending stretches",
		RunE:  func(*cobra.Command, []string) error { return run(o) },
	}
	f := root.Flags()
	f.StringVar(&o.out, "out", "data", "Output directory")
	f.StringSliceVar(&o.symbols, "symbols", []string{"AAPL", "MSFT", "NVDA"}, "Symbols to generate")
	f.IntVar(&o.bars, "bars", 390, "Bars per symbol")
	f.StringVar(&o.start, "start", "2024-03-04T14:30:00Z", "Timestamp of the first bar")
	f.Float64Var(&o.price, "price", 100, "Starting price")
	f.Int64Var(&o.seed, "seed", 42, "Random seed")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	start, err := time.Parse(time.RFC3339, o.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	if err := os.MkdirAll(o.out, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(o.seed))
	for _, sym := range o.symbols {
		s := generate(rng, sym, start, o.bars, o.price)
		path := filepath.Join(o.out, feed.FileName(sym))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := feed.WriteCSV(f, s); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %d bars to %s\n", len(s.Bars), path)
	}
	return nil
}

func generate(rng *rand.Rand, symbol string, start time.Time, n int, price float64) engine.Series {
	s := engine.Series{Symbol: symbol, Bars: make([]engine.Bar, 0, n)}
	for i := 0; i < n; i++ {
		trend := 0.0
		switch {
		case i > n/8 && i < n*3/8:
			trend = 0.0004
		case i > n/2 && i < n*3/4:
			trend = -0.0004
		}
		open := price
		price *= 1 + (rng.Float64()-0.5)*0.004 + trend
		if price < 1 {
			price = 1
		}
		vol := 0.0005 + rng.Float64()*0.001
		high := max(open, price) * (1 + vol*rng.Float64())
		low := min(open, price) * (1 - vol*rng.Float64())
		s.Bars = append(s.Bars, engine.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      round4(open),
			High:      round4(high),
			Low:       round4(low),
			Close:     round4(price),
		})
	}
	return s
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}
