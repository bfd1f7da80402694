package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/coinledger"
	"github.com/google/subcommands"
)

// ratesCmd holds the flags for the 'rates' subcommand.
type ratesCmd struct {
	at       string
	currency string
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "resolve currency rates at a point in time" }
func (*ratesCmd) Usage() string {
	return `cpl rates [-at <time>] [-c <currency>] [currency...]

  Resolves and prints the reporting-currency rate of the given currencies
  (the whole universe by default) at a point in time, exactly as a replay
  would price them.
`
}

func (c *ratesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.at, "at", time.Now().UTC().Format(time.RFC3339), "Resolution time (RFC 3339)")
	f.StringVar(&c.currency, "c", coinledger.DefaultReportingCurrency, "Reporting currency")
}

func (c *ratesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	at, err := time.Parse(time.RFC3339, c.at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -at: %v\n", err)
		return subcommands.ExitUsageError
	}
	rates, err := DecodeRates()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rates: %v\n", err)
		return subcommands.ExitFailure
	}
	resolver := coinledger.NewResolver(c.currency, rates)

	currencies := f.Args()
	if len(currencies) == 0 {
		currencies = coinledger.Currencies()
	}
	status := subcommands.ExitSuccess
	for _, cur := range currencies {
		rate, err := resolver.Resolve(coinledger.CanonicalCurrency(cur), at)
		if err != nil {
			fmt.Printf("%-10s %v\n", cur, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%-10s %s\n", cur, rate)
	}
	return status
}
