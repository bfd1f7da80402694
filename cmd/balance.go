package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/etnz/coinledger"
	"github.com/google/subcommands"
)

// balanceCmd holds the flags for the 'balance' subcommand.
type balanceCmd struct {
	replay replayCmd
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "final balance sheet after replaying all events" }
func (*balanceCmd) Usage() string {
	return `cpl balance [-method <method>] [-c <currency>]

  Replays the normalized events and prints the final per-currency balance
  sheet with quantities, attributed values and average unit prices.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.replay.method, "method", coinledger.AverageCosting.String(), "Costing method (average, fifo)")
	f.StringVar(&c.replay.currency, "c", coinledger.DefaultReportingCurrency, "Reporting currency")
	c.replay.period = coinledger.Daily.String()
}

func (c *balanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, err := c.replay.run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CURRENCY\tQUANTITY\tVALUE\tUNIT PRICE")
	for _, b := range result.Balances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Currency, b.Quantity, b.Value, b.UnitPrice)
	}
	for _, b := range result.Debts {
		fmt.Fprintf(w, "%s (debt)\t%s\t%s\t%s\n", b.Currency, b.Quantity, b.Value, b.UnitPrice)
	}
	fmt.Fprintf(w, "\trealized\t%s\t\n", result.Realized.SignedString())
	w.Flush()
	return subcommands.ExitSuccess
}
