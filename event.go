package coinledger

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind classifies a ledger event. The set is closed: the replayer rejects
// anything else as malformed.
type Kind string

const (
	Spot             Kind = "spot"
	SpotFee          Kind = "spot_fee"
	Deposit          Kind = "deposit"
	Withdrawal       Kind = "withdrawal"
	JPYDeposit       Kind = "jpy_deposit"
	JPYWithdrawal    Kind = "jpy_withdrawal"
	WithdrawalFee    Kind = "withdrawal_fee"
	Margin           Kind = "margin"
	MarginDeposit    Kind = "margin_deposit"
	MarginWithdrawal Kind = "margin_withdrawal"
	MarginFee        Kind = "margin_fee"
	MarginTransfer   Kind = "margin_transfer"
	Interest         Kind = "interest"
	Bonus            Kind = "bonus"
	Campaign         Kind = "campaign"
	TipSend          Kind = "tip_send"
	TipReceive       Kind = "tip_receive"
	Adjustment       Kind = "adjustment"
	Claim            Kind = "claim"
	ClaimFee         Kind = "claim_fee"
)

var allKinds = map[Kind]struct{}{
	Spot: {}, SpotFee: {}, Deposit: {}, Withdrawal: {},
	JPYDeposit: {}, JPYWithdrawal: {}, WithdrawalFee: {},
	Margin: {}, MarginDeposit: {}, MarginWithdrawal: {}, MarginFee: {},
	MarginTransfer: {}, Interest: {}, Bonus: {}, Campaign: {},
	TipSend: {}, TipReceive: {}, Adjustment: {}, Claim: {}, ClaimFee: {},
}

// Known reports whether k belongs to the closed kind set.
func (k Kind) Known() bool {
	_, ok := allKinds[k]
	return ok
}

// IsSpot reports whether the event carries an instrument and a side.
func (k Kind) IsSpot() bool { return k == Spot || k == SpotFee }

// isTransfer reports whether events of this kind are own-wallet transfers,
// processed only for their fee legs.
func (k Kind) isTransfer() bool {
	switch k {
	case Deposit, Withdrawal, JPYDeposit, JPYWithdrawal, WithdrawalFee:
		return true
	}
	return false
}

// Side of a spot trade, from the taker's point of view on the base currency.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Leg is one per-currency flow of an event.
type Leg struct {
	Currency string   `json:"currency"`
	Quantity Quantity `json:"quantity"`
}

// LedgerEvent is one normalized economic flow: a trade, transfer, fee or
// margin settlement decomposed into per-currency income, outcome and fee
// legs. Events are immutable inputs, globally ordered by Time with ties
// broken by stable input order.
type LedgerEvent struct {
	Time       time.Time
	Exchange   string
	ID         string
	Kind       Kind
	Instrument string // base/quote pair, set when Kind.IsSpot()
	Side       Side   // set when Instrument is
	Incomes    []Leg
	Outcomes   []Leg
	Fees       []Leg
}

// Ref returns a short identity for error context.
func (e LedgerEvent) Ref() string {
	return fmt.Sprintf("%s/%s/%s@%s", e.Exchange, e.Kind, e.ID, e.Time.Format(time.RFC3339))
}

// Pair splits the instrument into canonical base and quote currencies.
func (e LedgerEvent) Pair() (base, quote string, err error) {
	base, quote, ok := strings.Cut(e.Instrument, "/")
	if !ok {
		return "", "", MalformedEventError{Event: e.Ref(), Reason: fmt.Sprintf("invalid instrument %q", e.Instrument)}
	}
	return CanonicalCurrency(base), CanonicalCurrency(quote), nil
}

// Validate checks the decomposition invariants: a known kind, income
// quantities > 0, outcome quantities < 0, fee quantities <= 0, currencies in
// the known universe, and instrument/side present exactly on spot kinds.
func (e LedgerEvent) Validate() error {
	malformed := func(format string, args ...any) error {
		return MalformedEventError{Event: e.Ref(), Reason: fmt.Sprintf(format, args...)}
	}
	if e.Time.IsZero() {
		return malformed("missing time")
	}
	if !e.Kind.Known() {
		return malformed("unknown kind %q", e.Kind)
	}
	if e.Kind.IsSpot() {
		if _, _, err := e.Pair(); err != nil {
			return err
		}
		if e.Side != Buy && e.Side != Sell {
			return malformed("invalid side %q", e.Side)
		}
	} else if e.Instrument != "" {
		return malformed("instrument %q on non-spot kind %s", e.Instrument, e.Kind)
	}
	for _, leg := range e.Incomes {
		if !leg.Quantity.IsPositive() {
			return malformed("income %s %s is not positive", leg.Currency, leg.Quantity)
		}
	}
	for _, leg := range e.Outcomes {
		if !leg.Quantity.IsNegative() {
			return malformed("outcome %s %s is not negative", leg.Currency, leg.Quantity)
		}
	}
	for _, leg := range e.Fees {
		if leg.Quantity.IsPositive() {
			return malformed("fee %s %s is positive", leg.Currency, leg.Quantity)
		}
	}
	for _, legs := range [][]Leg{e.Incomes, e.Outcomes, e.Fees} {
		for _, leg := range legs {
			if err := ValidateCurrency(CanonicalCurrency(leg.Currency)); err != nil {
				return err
			}
		}
	}
	return nil
}

// EventSource yields normalized events in non-decreasing time order.
// Next returns io.EOF after the last event.
type EventSource interface {
	Next() (LedgerEvent, error)
}

type sliceSource struct {
	events []LedgerEvent
	next   int
}

func (s *sliceSource) Next() (LedgerEvent, error) {
	if s.next >= len(s.events) {
		return LedgerEvent{}, io.EOF
	}
	e := s.events[s.next]
	s.next++
	return e, nil
}

// Events adapts an in-memory slice to an EventSource.
func Events(events ...LedgerEvent) EventSource {
	return &sliceSource{events: events}
}
