package indicator

// Suite bundles the indicator columns a strategy family needs for one bar
// series, computed once up front: everything is computed eagerly over the
// whole series rather than bar-by-bar, since the kernel is columnar, not
// streaming. Per-call accessors stay cheap (slice indexing), so strategies
// can read Suite fields directly without re-deriving warmup bookkeeping
// themselves.
type Suite struct {
	High, Low, Close []float64

	SMAFast, SMASlow []float64
	SMAFastWarmup    int
	SMASlowWarmup    int

	EMAFast, EMASlow []float64
	EMAFastWarmup    int
	EMASlowWarmup    int

	DonchianUpperEntry, DonchianLowerEntry []float64
	DonchianEntryWarmup                   int
	DonchianUpperExit, DonchianLowerExit   []float64
	DonchianExitWarmup                     int

	ATR        []float64
	ATRWarmup  int
	PlusDI     []float64
	MinusDI    []float64
	ADX        []float64
	ADXWarmup  int
	AroonUp    []float64
	AroonDown  []float64
	AroonWarmup int

	SAR        []float64
	SARTrend   []int
	SARWarmup  int

	HAOpen, HAHigh, HALow, HAClose []float64
}

// SuiteParams configures which windows the Suite computes. Zero-value
// fields disable that family (callers only pay for what their strategy
// family needs).
type SuiteParams struct {
	SMAFastN, SMASlowN           int
	EMAFastN, EMASlowN           int
	DonchianEntryN, DonchianExitN int
	ATRN                         int
	ADXN                         int
	AroonN                       int
	SARStart, SARStep, SARMax   float64
	WithHeikinAshi              bool
	WithSAR                     bool
}

// NewSuite computes every indicator family requested by params over one
// bar series.
func NewSuite(open, high, low, close []float64, p SuiteParams) *Suite {
	s := &Suite{High: high, Low: low, Close: close}

	if p.SMAFastN > 0 {
		s.SMAFast, s.SMAFastWarmup = SMA(close, p.SMAFastN)
	}
	if p.SMASlowN > 0 {
		s.SMASlow, s.SMASlowWarmup = SMA(close, p.SMASlowN)
	}
	if p.EMAFastN > 0 {
		s.EMAFast, s.EMAFastWarmup = EMA(close, p.EMAFastN)
	}
	if p.EMASlowN > 0 {
		s.EMASlow, s.EMASlowWarmup = EMA(close, p.EMASlowN)
	}
	if p.DonchianEntryN > 0 {
		s.DonchianUpperEntry, s.DonchianLowerEntry, s.DonchianEntryWarmup = Donchian(high, low, p.DonchianEntryN)
	}
	if p.DonchianExitN > 0 {
		s.DonchianUpperExit, s.DonchianLowerExit, s.DonchianExitWarmup = Donchian(high, low, p.DonchianExitN)
	}
	if p.ATRN > 0 {
		s.ATR, s.ATRWarmup = ATRWilder(high, low, close, p.ATRN)
	}
	if p.ADXN > 0 {
		s.PlusDI, s.MinusDI, s.ADX, s.ADXWarmup = DMI(high, low, close, p.ADXN)
	}
	if p.AroonN > 0 {
		s.AroonUp, s.AroonDown, s.AroonWarmup = Aroon(high, low, p.AroonN)
	}
	if p.WithSAR {
		s.SAR, s.SARTrend, s.SARWarmup = ParabolicSAR(high, low, close, p.SARStart, p.SARStep, p.SARMax)
	}
	if p.WithHeikinAshi {
		s.HAOpen, s.HAHigh, s.HALow, s.HAClose = HeikinAshi(open, high, low, close)
	}
	return s
}
