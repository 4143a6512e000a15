package models

import (
	"sort"
	"time"
)

// Bar is a single OHLCV sample.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered run of bars for one symbol from one source.
// Bars are unique by timestamp and strictly increasing.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Source    string    `json:"source"`   // "alphavantage", "yahoo", "clickhouse"
	Interval  string    `json:"interval"` // "1min", "1d"
	Bars      []Bar     `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Latest returns the most recent bar.
func (s *PriceSeries) Latest() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Recent returns up to n newest bars, newest first.
func (s *PriceSeries) Recent(n int) []Bar {
	tail := s.Tail(n)
	if tail == nil {
		return nil
	}
	out := make([]Bar, len(tail))
	for i, b := range tail {
		out[len(tail)-1-i] = b
	}
	return out
}

// Tail returns up to n newest bars.
func (s *PriceSeries) Tail(n int) []Bar {
	if s.Len() == 0 || n <= 0 {
		return nil
	}
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	return s.Bars[len(s.Bars)-n:]
}

// NormalizeBars sorts bars ascending by time and keeps the last bar for duplicate timestamps.
func NormalizeBars(bars []Bar) []Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
