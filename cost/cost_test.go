package cost

import (
	"math"
	"testing"
)

func TestApplySlippageDirection(t *testing.T) {
	m := Model{SlippageBps: 50}
	buy := m.ApplySlippage(10, true)
	sell := m.ApplySlippage(11, false)
	if math.Abs(buy-10*1.005) > 1e-12 {
		t.Fatalf("buy fill = %v, want %v", buy, 10*1.005)
	}
	if math.Abs(sell-11*0.995) > 1e-12 {
		t.Fatalf("sell fill = %v, want %v", sell, 11*0.995)
	}
}

func TestFeeComputation(t *testing.T) {
	m := Model{FeeBps: 10}
	fee := m.Fee(100, 12.0)
	want := 100 * 12.0 * 0.001
	if fee != want {
		t.Fatalf("fee = %v, want %v", fee, want)
	}
}

func TestValidateRejectsNegative(t *testing.T) {
	if err := (Model{FeeBps: -1}).Validate(); err == nil {
		t.Fatalf("expected negative FeeBps to be rejected")
	}
	if err := (Model{SlippageBps: -1}).Validate(); err == nil {
		t.Fatalf("expected negative SlippageBps to be rejected")
	}
}

func TestFillModelString(t *testing.T) {
	if SignalCloseFillNextOpen.String() != "signal_close_fill_next_open" {
		t.Fatalf("unexpected string for SignalCloseFillNextOpen")
	}
	if SignalCloseFillSameClose.String() != "signal_close_fill_same_close" {
		t.Fatalf("unexpected string for SignalCloseFillSameClose")
	}
}
