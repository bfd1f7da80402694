package coinledger

import (
	"fmt"
	"time"
)

// The replay is a deterministic batch recomputation: every error below is
// fatal to the run. Processing stops at the offending event and the error
// surfaces with the event's identity and currency context; silently skipping
// an event would corrupt all subsequent cost-basis math.

// UnknownCurrencyError reports a currency outside the configured universe.
type UnknownCurrencyError struct {
	Currency string
}

func (e UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency %q", e.Currency)
}

// RateUnavailableError reports that no price point exists at or before the
// requested time within the lookback window.
type RateUnavailableError struct {
	Currency string
	At       time.Time
}

func (e RateUnavailableError) Error() string {
	return fmt.Sprintf("no rate for %s at %s", e.Currency, e.At.Format(time.RFC3339))
}

// InsufficientLotsError reports a FIFO disposal exceeding the tracked lots.
// The lot policy does not model debt.
type InsufficientLotsError struct {
	Currency  string
	Requested Quantity
	Available Quantity
}

func (e InsufficientLotsError) Error() string {
	return fmt.Sprintf("cannot dispose %s %s: only %s held in lots",
		e.Requested, e.Currency, e.Available)
}

// MalformedEventError reports an event violating the decomposition
// invariants (e.g. an outcome with positive quantity).
type MalformedEventError struct {
	Event  string // event identity, see LedgerEvent.Ref
	Reason string
}

func (e MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %s: %s", e.Event, e.Reason)
}

// InvariantViolationError reports an internal consistency failure after an
// apply, e.g. a value/quantity mismatch between the book and its lots.
type InvariantViolationError struct {
	Currency string
	Reason   string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Currency, e.Reason)
}
