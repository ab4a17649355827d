// market_status prints the exchanges whose regular session is open now
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/market"
)

func main() {
	var at string
	root := &cobra.Command{
		Use:   "market_status",
		Short: "List the stock exchanges open at a point in time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t
			}
			open := market.DefaultCalendar().OpenAt(now)
			if len(open) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No major stock exchanges are currently open.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Open exchanges:")
			for _, st := range open {
				fmt.Fprintln(cmd.OutOrStdout(), st.String())
			}
			return nil
		},
	}
	root.Flags().StringVar(&at, "at", "", "RFC 3339 time to check instead of now")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
