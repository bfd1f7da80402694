package coinledger

import (
	"fmt"
	"time"
)

// Period is the cadence of mark-to-market valuation snapshots.
type Period int

const (
	Hourly Period = iota
	Daily
)

func (p Period) String() string {
	switch p {
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	default:
		return "unknown"
	}
}

// ParsePeriod converts a string to a Period.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "hourly":
		return Hourly, nil
	case "daily", "":
		return Daily, nil
	default:
		return 0, fmt.Errorf("invalid period %q, must be 'hourly' or 'daily'", s)
	}
}

// Start truncates t to the beginning of its period. Days are bucketed in
// JST, matching the rate resolver.
func (p Period) Start(t time.Time) time.Time {
	t = t.In(JST)
	switch p {
	case Hourly:
		return t.Truncate(time.Hour)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, JST)
	}
}

// Next returns the first boundary strictly after t.
func (p Period) Next(t time.Time) time.Time {
	start := p.Start(t)
	switch p {
	case Hourly:
		return start.Add(time.Hour)
	default:
		return start.AddDate(0, 0, 1)
	}
}
