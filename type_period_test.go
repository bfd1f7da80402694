package coinledger

import (
	"testing"
	"time"
)

func TestPeriod_DailyBucketsInJST(t *testing.T) {
	// 20:00 UTC on Dec 31 is already Jan 1 in JST
	tm := time.Date(2017, time.December, 31, 20, 0, 0, 0, time.UTC)
	start := Daily.Start(tm)
	want := time.Date(2018, time.January, 1, 0, 0, 0, 0, JST)
	if !start.Equal(want) {
		t.Errorf("Daily.Start = %s, want %s", start, want)
	}
	if next := Daily.Next(tm); !next.Equal(want.AddDate(0, 0, 1)) {
		t.Errorf("Daily.Next = %s, want %s", next, want.AddDate(0, 0, 1))
	}
}

func TestPeriod_Hourly(t *testing.T) {
	tm := time.Date(2018, time.January, 1, 10, 30, 0, 0, time.UTC)
	if start := Hourly.Start(tm); !start.Equal(time.Date(2018, time.January, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Hourly.Start = %s", start)
	}
	if next := Hourly.Next(tm); !next.Equal(time.Date(2018, time.January, 1, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("Hourly.Next = %s", next)
	}
}

func TestParsePeriodAndMethod(t *testing.T) {
	if p, err := ParsePeriod("hourly"); err != nil || p != Hourly {
		t.Errorf("ParsePeriod(hourly) = %v, %v", p, err)
	}
	if _, err := ParsePeriod("weekly"); err == nil {
		t.Error("ParsePeriod(weekly) = nil error, want error")
	}
	if m, err := ParseCostingMethod("fifo"); err != nil || m != FIFOCosting {
		t.Errorf("ParseCostingMethod(fifo) = %v, %v", m, err)
	}
	if _, err := ParseCostingMethod("lifo"); err == nil {
		t.Error("ParseCostingMethod(lifo) = nil error, want error")
	}
}
