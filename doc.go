// Package coinledger computes per-currency inventory positions and realized
// profit and loss from a chronological stream of normalized exchange events,
// valued in a single reporting currency.
//
// The core functionalities include:
//   - Event Model: A closed set of normalized ledger events (spot trades,
//     transfers, fees, margin settlements) decomposed into per-currency
//     income, outcome and fee legs.
//   - Costing Policies: Two mutually exclusive cost-basis methods, a
//     weighted-average policy that tracks debt sub-positions when a balance
//     goes negative, and a FIFO lot policy that consumes acquisitions
//     oldest-first.
//   - Position Book: The single owner of all per-currency positions, lot
//     queues and debt balances, mutated only through atomic flow operations.
//   - Rate Resolution: Historical market rates to the reporting currency,
//     resolved through per-venue candle histories and memoized per day.
//   - Replay: A deterministic, strictly ordered replay of the event stream
//     that produces an auditable record per event, periodic mark-to-market
//     valuations, and a final balance sheet.
//
// This package serves as the foundational logic for the `cpl` command-line
// tool. Replaying the same event stream from the same initial snapshot always
// yields identical results.
package coinledger
