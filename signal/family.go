package signal

import "github.com/trendlab/trendlab/errs"

// Family is the closed set of strategy families the kernel implements.
// Strategies vary only by (indicator set, signal function, trading mode,
// sizer), so they are modeled as one tagged variant per family rather than
// open subclassing: the sweep's grid expansion and the artifact exporter
// switch exhaustively over these values.
type Family int

const (
	FamilyDonchian Family = iota
	FamilyMACrossover
	FamilyTSMOM
	FamilyEnsemble
	FamilyParabolicSAR
	FamilyOpeningRangeBreakout
)

// familyNames is the stable wire/config name for each variant; these are
// the strings a RunRequest or artifact carries.
var familyNames = map[Family]string{
	FamilyDonchian:             "donchian_turtle",
	FamilyMACrossover:          "ma_crossover",
	FamilyTSMOM:                "tsmom",
	FamilyEnsemble:             "ensemble_donchian",
	FamilyParabolicSAR:         "parabolic_sar",
	FamilyOpeningRangeBreakout: "opening_range_breakout",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFamily resolves a strategy name to its Family variant, rejecting
// anything outside the closed set with InvalidConfig.
func ParseFamily(name string) (Family, error) {
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return 0, errs.Newf(errs.InvalidConfig, "unknown strategy %q", name)
}
