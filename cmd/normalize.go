package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/etnz/coinledger"
	"github.com/google/subcommands"
)

// normalizeCmd holds the flags for the 'normalize' subcommand.
type normalizeCmd struct {
	input string
}

func (*normalizeCmd) Name() string     { return "normalize" }
func (*normalizeCmd) Synopsis() string { return "convert raw exchange rows into ledger events" }
func (*normalizeCmd) Usage() string {
	return `cpl normalize -i <file>

  Reads raw exchange rows (JSONL format), normalizes them into ledger
  events and writes them to the events file, sorted by time.
`
}

func (c *normalizeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "", "Raw exchange rows to normalize (JSONL format)")
}

func (c *normalizeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.input == "" {
		fmt.Fprintln(os.Stderr, "-i is required")
		return subcommands.ExitUsageError
	}
	in, err := os.Open(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", c.input, err)
		return subcommands.ExitFailure
	}
	defer in.Close()

	rows, err := coinledger.DecodeRawRecords(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading raw rows: %v\n", err)
		return subcommands.ExitFailure
	}

	var events []coinledger.LedgerEvent
	skipped := 0
	for _, row := range rows {
		e, err := coinledger.Normalize(row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error normalizing row %s/%s: %v\n", row.Exchange, row.ID, err)
			return subcommands.ExitFailure
		}
		if e == nil {
			skipped++
			continue
		}
		events = append(events, *e)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })

	out, err := os.Create(*eventsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", *eventsFile, err)
		return subcommands.ExitFailure
	}
	defer out.Close()
	if err := coinledger.EncodeEvents(out, events); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing events: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Normalized %d rows into %d events (%d skipped) in %s\n", len(rows), len(events), skipped, *eventsFile)
	return subcommands.ExitSuccess
}
