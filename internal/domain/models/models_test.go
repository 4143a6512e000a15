package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestNormalizeBars_SortsAndDedupes(t *testing.T) {
	bars := []Bar{
		{Time: day(3), Close: 3},
		{Time: day(1), Close: 1},
		{Time: day(2), Close: 2},
		{Time: day(3), Close: 33},
	}
	got := NormalizeBars(bars)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Time.Before(got[i].Time) {
			t.Fatalf("not strictly increasing at %d", i)
		}
	}
	if got[2].Close != 33 {
		t.Errorf("duplicate kept %v, want last (33)", got[2].Close)
	}
}

func TestPriceSeries_RecentTailLatest(t *testing.T) {
	s := &PriceSeries{Bars: []Bar{{Time: day(1), Close: 1}, {Time: day(2), Close: 2}, {Time: day(3), Close: 3}}}
	if b, ok := s.Latest(); !ok || b.Close != 3 {
		t.Errorf("latest = %v, %v", b, ok)
	}
	if r := s.Recent(2); len(r) != 2 || r[0].Close != 3 || r[1].Close != 2 {
		t.Errorf("recent = %v", r)
	}
	if r := s.Recent(5); len(r) != 3 || r[2].Close != 1 {
		t.Errorf("recent = %v", r)
	}
	if tl := s.Tail(2); len(tl) != 2 || tl[0].Close != 2 {
		t.Errorf("tail = %v", tl)
	}

	var empty *PriceSeries
	if _, ok := empty.Latest(); ok {
		t.Error("nil series has no latest bar")
	}
	if empty.Len() != 0 || empty.Recent(5) != nil || empty.Tail(5) != nil {
		t.Error("nil series helpers should be empty")
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != Period1y {
		t.Errorf("empty = %v, %v", p, err)
	}
	if p, err := ParsePeriod("ytd"); err != nil || p != PeriodYTD {
		t.Errorf("ytd = %v, %v", p, err)
	}
	if _, err := ParsePeriod("13mo"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("err = %v", err)
	}
}

func TestPeriodSince(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	if got := Period1y.Since(now); !got.Equal(time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("1y = %v", got)
	}
	if got := PeriodYTD.Since(now); !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ytd = %v", got)
	}
	if !PeriodMax.Since(now).IsZero() {
		t.Error("max should be unbounded")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrMissingCredential, KindMissingCredential},
		{fmt.Errorf("intraday AAPL: %w", ErrDataUnavailable), KindDataUnavailable},
		{fmt.Errorf("x: %w", ErrRateLimited), KindRateLimited},
		{ErrInvalidPeriod, KindInvalidPeriod},
		{ErrInsufficientData, KindInsufficientData},
		{ErrFitting, KindFitting},
		{errors.New("other"), KindUnknown},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if !errors.Is(ErrMissingCredential, ErrDataUnavailable) {
		t.Error("missing credential must be a data-unavailable variant")
	}
}

func TestDashboardView_SetError(t *testing.T) {
	var v DashboardView
	v.SetError(SectionForecast, nil)
	if len(v.Errors) != 0 {
		t.Fatal("nil error recorded")
	}
	v.SetError(SectionForecast, ErrInsufficientData)
	e, ok := v.Err(SectionForecast)
	if !ok || e.Kind != KindInsufficientData {
		t.Errorf("err = %+v, %v", e, ok)
	}
}
