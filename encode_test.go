package coinledger

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeEvents_RoundTrip(t *testing.T) {
	events := testStream()

	var buf bytes.Buffer
	if err := EncodeEvents(&buf, events); err != nil {
		t.Fatalf("EncodeEvents() error = %v", err)
	}
	decoded, err := DecodeEvents(&buf)
	if err != nil {
		t.Fatalf("DecodeEvents() error = %v", err)
	}
	if len(decoded) != len(events) {
		t.Fatalf("len = %d, want %d", len(decoded), len(events))
	}
	for i := range events {
		if decoded[i].Ref() != events[i].Ref() {
			t.Errorf("event %d = %s, want %s", i, decoded[i].Ref(), events[i].Ref())
		}
	}
	if !decoded[1].Incomes[0].Quantity.Equal(Q(0.1)) {
		t.Errorf("buy income = %s, want 0.1", decoded[1].Incomes[0].Quantity)
	}
}

func TestDecodeEvents_SortsByTime(t *testing.T) {
	jsonl := strings.Join([]string{
		`{"time":"2018-01-02T00:00:00Z","exchange":"zaif","id":"b","kind":"bonus","incomes":[{"currency":"XEM","quantity":1}]}`,
		`{"time":"2018-01-01T00:00:00Z","exchange":"zaif","id":"a","kind":"bonus","incomes":[{"currency":"XEM","quantity":1}]}`,
		"",
	}, "\n")
	events, err := DecodeEvents(strings.NewReader(jsonl))
	if err != nil {
		t.Fatalf("DecodeEvents() error = %v", err)
	}
	if events[0].ID != "a" || events[1].ID != "b" {
		t.Errorf("order = %s, %s, want a, b", events[0].ID, events[1].ID)
	}
}

func TestEncodeBalances_RoundTrip(t *testing.T) {
	balances := []Balance{
		{Currency: "BTC", Quantity: Q(0.1), Value: yen(500050), UnitPrice: yen(5000500)},
		{Currency: "JPY", Quantity: Q(-500050), Value: yen(-500050), UnitPrice: yen(1)},
	}
	var buf bytes.Buffer
	if err := EncodeBalances(&buf, balances); err != nil {
		t.Fatalf("EncodeBalances() error = %v", err)
	}
	decoded, err := DecodeBalances(&buf)
	if err != nil {
		t.Fatalf("DecodeBalances() error = %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("len = %d, want 2", len(decoded))
	}
	if decoded[0].Currency != "BTC" || !decoded[0].Value.Equal(yen(500050)) {
		t.Errorf("decoded[0] = %+v, want the BTC balance", decoded[0])
	}
	if !decoded[1].Quantity.Equal(Q(-500050)) {
		t.Errorf("decoded[1].Quantity = %s, want -500050", decoded[1].Quantity)
	}
}

func TestEncodeRates_RoundTrip(t *testing.T) {
	rates := NewRates()
	rates.Add("quoinex", "BTC/JPY", at(1, 0), Q(1500000))
	rates.Add("yahoo", "USD/JPY", at(1, 0), Q(110.25))

	var buf bytes.Buffer
	if err := EncodeRates(&buf, rates); err != nil {
		t.Fatalf("EncodeRates() error = %v", err)
	}
	decoded, err := DecodeRates(&buf)
	if err != nil {
		t.Fatalf("DecodeRates() error = %v", err)
	}
	if s, ok := decoded.History("quoinex", "BTC/JPY").LastBefore(at(1, 0)); !ok || !s.Price.Equal(Q(1500000)) {
		t.Errorf("BTC/JPY sample = %v %v, want 1500000", s, ok)
	}
	if s, ok := decoded.History("yahoo", "USD/JPY").LastBefore(at(1, 0)); !ok || !s.Price.Equal(Q(110.25)) {
		t.Errorf("USD/JPY sample = %v %v, want 110.25", s, ok)
	}
}

func TestEncodeRecords_RoundTrip(t *testing.T) {
	result, err := testReplayer(AverageCosting, Daily).Run(Events(testStream()...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeRecords(&buf, result.Records); err != nil {
		t.Fatalf("EncodeRecords() error = %v", err)
	}
	encoded := buf.Bytes()
	decoded, err := DecodeRecords(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	if len(decoded) != len(result.Records) {
		t.Fatalf("len = %d, want %d", len(decoded), len(result.Records))
	}
	// re-encoding the decoded records must be byte identical
	var again bytes.Buffer
	if err := EncodeRecords(&again, decoded); err != nil {
		t.Fatalf("EncodeRecords() error = %v", err)
	}
	if !bytes.Equal(encoded, again.Bytes()) {
		t.Error("re-encoded records differ from the original encoding")
	}
}
