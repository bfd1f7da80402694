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

// fetchCmd holds the flags for the 'fetch' subcommand.
type fetchCmd struct {
	from     string
	to       string
	currency string
	only     string
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download historical price samples" }
func (*fetchCmd) Usage() string {
	return `cpl fetch -from <date> [-to <date>] [-only <currency>] [-c <currency>]

  Downloads the price histories the currency universe needs over a date
  range and merges them into the rates file.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", time.Now().In(coinledger.JST).Format("2006-01-02"), "End date (YYYY-MM-DD)")
	f.StringVar(&c.only, "only", "", "Fetch a single currency instead of the whole universe")
	f.StringVar(&c.currency, "c", coinledger.DefaultReportingCurrency, "Reporting currency")
}

func (c *fetchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" {
		fmt.Fprintln(os.Stderr, "-from is required")
		return subcommands.ExitUsageError
	}
	from, err := time.ParseInLocation("2006-01-02", c.from, coinledger.JST)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
		return subcommands.ExitUsageError
	}
	to, err := time.ParseInLocation("2006-01-02", c.to, coinledger.JST)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -to: %v\n", err)
		return subcommands.ExitUsageError
	}

	rates, err := DecodeRates()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rates: %v\n", err)
		return subcommands.ExitFailure
	}

	fetcher := coinledger.NewRateFetcher()
	if c.only != "" {
		currency := coinledger.CanonicalCurrency(c.only)
		if coinledger.IsFiat(currency) {
			err = fetcher.FetchFiat(rates, currency, c.currency, from, to)
		} else {
			err = fetcher.FetchCrypto(rates, currency, from, to)
		}
	} else {
		err = fetcher.FetchAll(rates, c.currency, from, to)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := EncodeRates(rates); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing rates: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
