package manifest

import "testing"
import "github.com/trendlab/trendlab/bar"

func series(t *testing.T, closes []float64) *bar.Series {
	t.Helper()
	bars := make([]bar.Bar, len(closes))
	for i, c := range closes {
		bars[i] = bar.Bar{TS: int64(i) * 86400, Open: c, High: c, Low: c, Close: c, Volume: 1, Symbol: "X", Timeframe: "1d"}
	}
	s, err := bar.New(bars)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFingerprintDeterministic(t *testing.T) {
	s1 := series(t, []float64{1, 2, 3})
	s2 := series(t, []float64{1, 2, 3})
	if Fingerprint(s1) != Fingerprint(s2) {
		t.Fatalf("identical series must fingerprint identically")
	}
}

func TestFingerprintDiffersOnContentChange(t *testing.T) {
	s1 := series(t, []float64{1, 2, 3})
	s2 := series(t, []float64{1, 2, 4})
	if Fingerprint(s1) == Fingerprint(s2) {
		t.Fatalf("different series must not collide")
	}
}
