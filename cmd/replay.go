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

// replayCmd holds the flags for the 'replay' subcommand.
type replayCmd struct {
	method      string
	period      string
	currency    string
	initialFile string
	initialTime string
	records     string
	valuations  string
	balances    string
}

func (*replayCmd) Name() string     { return "replay" }
func (*replayCmd) Synopsis() string { return "recompute realized P&L from the event stream" }
func (*replayCmd) Usage() string {
	return `cpl replay [-method <method>] [-period <period>] [-c <currency>] [-initial <file>] [-records <file>] [-valuations <file>] [-balances <file>]

  Replays the normalized events against the price history and writes the
  per-event P&L records, the mark-to-market valuations and the final
  balance sheet.
`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.method, "method", coinledger.AverageCosting.String(), "Costing method (average, fifo)")
	f.StringVar(&c.period, "period", coinledger.Daily.String(), "Valuation snapshot cadence (hourly, daily)")
	f.StringVar(&c.currency, "c", coinledger.DefaultReportingCurrency, "Reporting currency")
	f.StringVar(&c.initialFile, "initial", "", "Balance sheet to seed positions from (JSONL format)")
	f.StringVar(&c.initialTime, "initial-time", "", "Acquisition time of the seeded balances (RFC 3339)")
	f.StringVar(&c.records, "records", "", "File to write P&L records to, stdout when empty")
	f.StringVar(&c.valuations, "valuations", "", "File to write valuation snapshots to")
	f.StringVar(&c.balances, "balances", "", "File to write the final balance sheet to")
}

// run builds and executes a replay from the shared app files. Also used by
// the 'balance' subcommand.
func (c *replayCmd) run() (*coinledger.Result, error) {
	method, err := coinledger.ParseCostingMethod(c.method)
	if err != nil {
		return nil, err
	}
	period, err := coinledger.ParsePeriod(c.period)
	if err != nil {
		return nil, err
	}

	events, err := DecodeEvents()
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	rates, err := DecodeRates()
	if err != nil {
		return nil, fmt.Errorf("loading rates: %w", err)
	}

	cfg := coinledger.Config{
		ReportingCurrency: c.currency,
		Method:            method,
		SnapshotPeriod:    period,
		Rates:             coinledger.NewResolver(c.currency, rates),
	}
	if c.initialFile != "" {
		f, err := os.Open(c.initialFile)
		if err != nil {
			return nil, err
		}
		cfg.Initial, err = coinledger.DecodeBalances(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("loading initial balances: %w", err)
		}
		if c.initialTime != "" {
			cfg.InitialTime, err = time.Parse(time.RFC3339, c.initialTime)
			if err != nil {
				return nil, fmt.Errorf("parsing initial time: %w", err)
			}
		}
	}

	return coinledger.NewReplayer(cfg).Run(coinledger.Events(events...))
}

func (c *replayCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	result, err := c.run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying: %v\n", err)
		return subcommands.ExitFailure
	}

	out := os.Stdout
	if c.records != "" {
		f, err := os.Create(c.records)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.records, err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		out = f
	}
	if err := coinledger.EncodeRecords(out, result.Records); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing records: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.valuations != "" {
		f, err := os.Create(c.valuations)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.valuations, err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		if err := coinledger.EncodeValuations(f, result.Valuations); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing valuations: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	if c.balances != "" {
		f, err := os.Create(c.balances)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.balances, err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		if err := coinledger.EncodeBalances(f, append(result.Balances, result.Debts...)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing balances: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	fmt.Fprintf(os.Stderr, "replayed %d events, realized P&L %s\n", len(result.Records), result.Realized)
	return subcommands.ExitSuccess
}
