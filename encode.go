package coinledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// This file persists the module's streams as JSONL, one object per line,
// human-readable and git-friendly. Replaying the same files twice must
// produce byte-identical output, so every encoder writes fields in a fixed
// order through jsonObjectWriter.

func (e LedgerEvent) MarshalJSON() ([]byte, error) {
	w := &jsonObjectWriter{}
	w.Append("time", e.Time.UTC().Format(time.RFC3339Nano)).
		Append("exchange", e.Exchange).
		Append("id", e.ID).
		Append("kind", e.Kind).
		Optional("instrument", e.Instrument).
		Optional("side", e.Side)
	if len(e.Incomes) > 0 {
		w.Append("incomes", e.Incomes)
	}
	if len(e.Outcomes) > 0 {
		w.Append("outcomes", e.Outcomes)
	}
	if len(e.Fees) > 0 {
		w.Append("fees", e.Fees)
	}
	return w.MarshalJSON()
}

func (e *LedgerEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Time       time.Time `json:"time"`
		Exchange   string    `json:"exchange"`
		ID         string    `json:"id"`
		Kind       Kind      `json:"kind"`
		Instrument string    `json:"instrument"`
		Side       Side      `json:"side"`
		Incomes    []Leg     `json:"incomes"`
		Outcomes   []Leg     `json:"outcomes"`
		Fees       []Leg     `json:"fees"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = LedgerEvent(raw)
	return nil
}

// DecodeEvents reads events from a JSONL stream and returns them sorted by
// time, ties keeping input order.
func DecodeEvents(r io.Reader) ([]LedgerEvent, error) {
	var events []LedgerEvent
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var e LedgerEvent
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("decoding event at line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events, nil
}

// EncodeEvents writes events as JSONL.
func EncodeEvents(w io.Writer, events []LedgerEvent) error {
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeRecords writes the per-event P&L records as JSONL.
func EncodeRecords(w io.Writer, records []PnLRecord) error {
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeRecords reads P&L records back from a JSONL stream.
func DecodeRecords(r io.Reader) ([]PnLRecord, error) {
	var records []PnLRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec PnLRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("decoding record at line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// EncodeValuations writes mark-to-market snapshots as JSONL.
func EncodeValuations(w io.Writer, valuations []Valuation) error {
	for _, v := range valuations {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func (b Balance) MarshalJSON() ([]byte, error) {
	w := &jsonObjectWriter{}
	w.Append("currency", b.Currency).
		Append("quantity", b.Quantity).
		Append("value", b.Value).
		Append("unitPrice", b.UnitPrice)
	return w.MarshalJSON()
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	var raw struct {
		Currency  string   `json:"currency"`
		Quantity  Quantity `json:"quantity"`
		Value     Money    `json:"value"`
		UnitPrice Money    `json:"unitPrice"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Balance(raw)
	return nil
}

// EncodeBalances writes a balance sheet as JSONL, one currency per line.
func EncodeBalances(w io.Writer, balances []Balance) error {
	for _, bal := range balances {
		b, err := json.Marshal(bal)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(b)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeBalances reads a balance sheet, e.g. to seed a resumed replay.
func DecodeBalances(r io.Reader) ([]Balance, error) {
	var balances []Balance
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var bal Balance
		if err := json.Unmarshal(b, &bal); err != nil {
			return nil, fmt.Errorf("decoding balance at line %d: %w", line, err)
		}
		balances = append(balances, bal)
	}
	return balances, scanner.Err()
}

// EncodeRates writes every sample of a rate store as JSONL, sorted by
// venue, instrument and time.
func EncodeRates(w io.Writer, rates *Rates) error {
	keys := make([]venueInstrument, 0, len(rates.histories))
	for k := range rates.histories {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Venue != keys[j].Venue {
			return keys[i].Venue < keys[j].Venue
		}
		return keys[i].Instrument < keys[j].Instrument
	})
	for _, k := range keys {
		for _, s := range rates.histories[k].samples {
			jw := &jsonObjectWriter{}
			jw.Append("venue", k.Venue).
				Append("instrument", k.Instrument).
				Append("time", s.Time.UTC().Format(time.RFC3339Nano)).
				Append("price", s.Price)
			b, err := jw.MarshalJSON()
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, string(b)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeRates reads rate samples from a JSONL stream into a store.
func DecodeRates(r io.Reader) (*Rates, error) {
	rates := NewRates()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var raw struct {
			Venue      string    `json:"venue"`
			Instrument string    `json:"instrument"`
			Time       time.Time `json:"time"`
			Price      Quantity  `json:"price"`
		}
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("decoding rate at line %d: %w", line, err)
		}
		rates.Add(raw.Venue, raw.Instrument, raw.Time, raw.Price)
	}
	return rates, scanner.Err()
}

// DecodeRawRecords reads raw exchange rows for normalization.
func DecodeRawRecords(r io.Reader) ([]RawRecord, error) {
	var records []RawRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var raw struct {
			Time       time.Time `json:"time"`
			Exchange   string    `json:"exchange"`
			Kind       string    `json:"kind"`
			ID         string    `json:"id"`
			Instrument string    `json:"instrument"`
			Side       string    `json:"side"`
			Skip       bool      `json:"skip"`
			PnL        []struct {
				Currency string   `json:"currency"`
				Quantity Quantity `json:"quantity"`
				Note     string   `json:"note"`
			} `json:"pnl"`
		}
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("decoding raw record at line %d: %w", line, err)
		}
		rec := RawRecord{
			Time:       raw.Time,
			Exchange:   raw.Exchange,
			Kind:       raw.Kind,
			ID:         raw.ID,
			Instrument: raw.Instrument,
			Side:       raw.Side,
			Skip:       raw.Skip,
		}
		for _, leg := range raw.PnL {
			rec.Legs = append(rec.Legs, RawLeg{Currency: leg.Currency, Quantity: leg.Quantity, Note: leg.Note})
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
