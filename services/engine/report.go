package engine

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

func money(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

// SummaryLine is the one-line result of a run
func SummaryLine(r RunResult) string {
	return fmt.Sprintf("%s: trades=%d wins=%d losses=%d win_rate=%s%% pnl=%s capital=%s",
		r.Name, r.Trades, r.Wins, r.Losses,
		decimal.NewFromFloat(r.WinRate()*100).StringFixed(1), money(r.PnL), money(r.EndingCapital))
}

// WriteSummary renders the per-strategy table printed after a backtest
func WriteSummary(w io.Writer, results []RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "STRATEGY\tTRADES\tWINS\tLOSSES\tWIN%\tPNL\tCAPITAL\tMAX_DD%\tOPEN\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%d\t\n",
			r.Name, r.Trades, r.Wins, r.Losses,
			decimal.NewFromFloat(r.WinRate()*100).StringFixed(1),
			money(r.PnL), money(r.EndingCapital),
			decimal.NewFromFloat(r.MaxDrawdown*100).StringFixed(2),
			len(r.OpenAtEnd))
	}
	return tw.Flush()
}
