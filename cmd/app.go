// Package cmd implements the CLI application to value a crypto ledger.
package cmd

import (
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/etnz/coinledger"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&normalizeCmd{}, "ledger")
	c.Register(&replayCmd{}, "ledger")
	c.Register(&balanceCmd{}, "ledger")

	c.Register(&fetchCmd{}, "rates")
	c.Register(&ratesCmd{}, "rates")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var eventsFile = flag.String("events-file", "events.jsonl", "Path to the normalized events file (JSONL format)")
var ratesFile = flag.String("rates-file", "rates.jsonl", "Path to the price samples file (JSONL format)")

// DecodeEvents loads the normalized events from the app events file.
func DecodeEvents() ([]coinledger.LedgerEvent, error) {
	f, err := os.Open(*eventsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return coinledger.DecodeEvents(f)
}

// DecodeRates loads the price samples from the app rates file. A missing
// file is an empty store, fetch fills it.
func DecodeRates() (*coinledger.Rates, error) {
	f, err := os.Open(*ratesFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("warning, rates file does not exist, starting from an empty store")
		return coinledger.NewRates(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return coinledger.DecodeRates(f)
}

// EncodeRates writes the price samples back to the app rates file.
func EncodeRates(rates *coinledger.Rates) error {
	f, err := os.Create(*ratesFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return coinledger.EncodeRates(f, rates)
}
