package coinledger

import (
	"encoding/json"
	"time"
)

// A FlowRole labels which leg of an event produced a delta.
type FlowRole string

const (
	IncomeFlow  FlowRole = "income"
	OutcomeFlow FlowRole = "outcome"
	FeeFlow     FlowRole = "fee"
)

// A LegDelta is the effect of one applied leg: the quantity moved and the
// reporting-currency value attributed to it.
type LegDelta struct {
	Role     FlowRole `json:"role"`
	Currency string   `json:"currency"`
	Quantity Quantity `json:"quantity"`
	Value    Money    `json:"value"`
}

// A PnLRecord is the auditable output for one processed event: its
// identity, the per-leg deltas, the event's realized-gain contribution, the
// cumulative realized P&L so far, and a deep snapshot of all positions and
// debts at that instant. Records are created once and never mutated.
type PnLRecord struct {
	Time       time.Time
	Exchange   string
	ID         string
	Kind       Kind
	Instrument string
	Side       Side
	Deltas     []LegDelta
	Realized   Money
	Cumulative Money
	Positions  []Balance
	Debts      []Balance
}

func (r PnLRecord) MarshalJSON() ([]byte, error) {
	w := &jsonObjectWriter{}
	w.Append("time", r.Time.UTC().Format(time.RFC3339Nano)).
		Append("exchange", r.Exchange).
		Append("id", r.ID).
		Append("kind", r.Kind).
		Optional("instrument", r.Instrument).
		Optional("side", r.Side).
		Append("deltas", r.Deltas).
		Append("realized", r.Realized).
		Append("cumulative", r.Cumulative).
		Append("positions", r.Positions).
		Append("debts", r.Debts)
	return w.MarshalJSON()
}

func (r *PnLRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time       time.Time  `json:"time"`
		Exchange   string     `json:"exchange"`
		ID         string     `json:"id"`
		Kind       Kind       `json:"kind"`
		Instrument string     `json:"instrument"`
		Side       Side       `json:"side"`
		Deltas     []LegDelta `json:"deltas"`
		Realized   Money      `json:"realized"`
		Cumulative Money      `json:"cumulative"`
		Positions  []Balance  `json:"positions"`
		Debts      []Balance  `json:"debts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = PnLRecord(raw)
	return nil
}

// A ValuationLine marks one open currency line to market: the net quantity
// across position and debt, and its value at the snapshot rate.
type ValuationLine struct {
	Currency string   `json:"currency"`
	Quantity Quantity `json:"quantity"`
	Value    Money    `json:"value"`
}

// A Valuation is a mark-to-market snapshot emitted when replay crosses a
// period boundary. It values open inventory at current rates without
// touching the book; Realized repeats the cumulative realized P&L for
// plotting both series on one time axis.
type Valuation struct {
	Time     time.Time
	Period   Period
	Lines    []ValuationLine
	Total    Money
	Realized Money
}

func (v Valuation) MarshalJSON() ([]byte, error) {
	w := &jsonObjectWriter{}
	w.Append("time", v.Time.UTC().Format(time.RFC3339Nano)).
		Append("period", v.Period.String()).
		Append("lines", v.Lines).
		Append("total", v.Total).
		Append("realized", v.Realized)
	return w.MarshalJSON()
}

// A Result is the terminal state of one replay run.
type Result struct {
	Records    []PnLRecord
	Valuations []Valuation
	Balances   []Balance
	Debts      []Balance
	Realized   Money
}
