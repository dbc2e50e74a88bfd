package bar

import "testing"

func TestNewRejectsDuplicateTimestamp(t *testing.T) {
	bars := []Bar{
		{TS: 100, Open: 1, High: 1, Low: 1, Close: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 100, Open: 1, High: 1, Low: 1, Close: 1, Symbol: "X", Timeframe: "1d"},
	}
	if _, err := New(bars); err == nil {
		t.Fatalf("expected duplicate timestamp to be rejected")
	}
}

func TestNewRejectsNonAscendingTimestamp(t *testing.T) {
	bars := []Bar{
		{TS: 200, Open: 1, High: 1, Low: 1, Close: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 100, Open: 1, High: 1, Low: 1, Close: 1, Symbol: "X", Timeframe: "1d"},
	}
	if _, err := New(bars); err == nil {
		t.Fatalf("expected non-ascending timestamp to be rejected")
	}
}

func TestNewRejectsInvalidOHLC(t *testing.T) {
	bars := []Bar{
		{TS: 100, Open: 10, High: 9, Low: 1, Close: 10, Symbol: "X", Timeframe: "1d"},
	}
	if _, err := New(bars); err == nil {
		t.Fatalf("expected high < max(open,close) to be rejected")
	}
}

func TestNewRejectsNegativeVolume(t *testing.T) {
	bars := []Bar{
		{TS: 100, Open: 1, High: 1, Low: 1, Close: 1, Volume: -1, Symbol: "X", Timeframe: "1d"},
	}
	if _, err := New(bars); err == nil {
		t.Fatalf("expected negative volume to be rejected")
	}
}

func TestNewRejectsMixedSymbol(t *testing.T) {
	bars := []Bar{
		{TS: 100, Open: 1, High: 1, Low: 1, Close: 1, Symbol: "X", Timeframe: "1d"},
		{TS: 200, Open: 1, High: 1, Low: 1, Close: 1, Symbol: "Y", Timeframe: "1d"},
	}
	if _, err := New(bars); err == nil {
		t.Fatalf("expected mixed symbol to be rejected")
	}
}

func TestConstantSeriesRoundTrips(t *testing.T) {
	s, err := ConstantSeries("X", "1d", 0, 10, 100.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 10 {
		t.Fatalf("expected 10 bars, got %d", s.Len())
	}
	for i := 0; i < s.Len(); i++ {
		b := s.At(i)
		if b.Open != 100 || b.High != 100 || b.Low != 100 || b.Close != 100 || b.Volume != 0 {
			t.Fatalf("bar %d not constant: %+v", i, b)
		}
	}
}

func TestSliceSharesUnderlyingArrays(t *testing.T) {
	s, _ := ConstantSeries("X", "1d", 0, 5, 1.0)
	sub := s.Slice(1, 3)
	if sub.Len() != 2 {
		t.Fatalf("expected length 2, got %d", sub.Len())
	}
	if sub.TS[0] != s.TS[1] {
		t.Fatalf("slice should start at original index 1")
	}
}
