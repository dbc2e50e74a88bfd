// Package artifact produces the versioned, self-describing export of a
// chosen (strategy_type, config_id, run): a JSON document complete enough
// to reimplement the strategy on another platform and verify parity
// against a reference run.
package artifact

import (
	"encoding/json"

	"github.com/trendlab/trendlab/errs"
)

const SchemaVersion = 1

// IndicatorDef is one indicator's compact, language-neutral definition.
// Every value needed to reconstruct the indicator without the source code
// must be present in Params.
type IndicatorDef struct {
	Name   string             `json:"name"` // e.g. "sma", "donchian", "parabolic_sar"
	Params map[string]float64 `json:"params"`
	Source string             `json:"source"` // e.g. "close", "high,low"
}

// Costs is the fee/slippage block of the document.
type Costs struct {
	FeeBps      float64 `json:"fee_bps"`
	SlippageBps float64 `json:"slippage_bps"`
}

// Rules are the four entry/exit boolean expressions over indicators and
// price columns, using a restricted operator set: >, <, >=, <=, ==, and,
// or, not, cross_above, cross_below, and prior-bar references (encoded as
// "name[1]").
type Rules struct {
	LongEntry  string `json:"long_entry"`
	LongExit   string `json:"long_exit"`
	ShortEntry string `json:"short_entry"`
	ShortExit  string `json:"short_exit"`
}

// ParityRow is one bar of the parity test vector: the bar itself, every
// indicator value, the boolean evaluation of each rule, the target
// position, and the run's cash/equity at that bar.
type ParityRow struct {
	TS         string             `json:"ts"` // ISO-8601, UTC
	Open       float64            `json:"o"`
	High       float64            `json:"h"`
	Low        float64            `json:"l"`
	Close      float64            `json:"c"`
	Volume     float64            `json:"v"`
	Indicators map[string]float64 `json:"indicators"`
	Signals    map[string]bool    `json:"signals"`
	Position   int                `json:"position"`
	Cash       float64            `json:"cash"`
	Equity     float64            `json:"equity"`
}

// ParityVector is the contiguous verification window: its ISO-8601 bounds
// and one row per bar.
type ParityVector struct {
	Window [2]string   `json:"window"`
	Rows   []ParityRow `json:"rows"`
}

// StrategyArtifact is the complete export document (schema version 1).
type StrategyArtifact struct {
	SchemaVersion   int                `json:"schema_version"`
	StrategyID      string             `json:"strategy_id"`
	StrategyVersion string             `json:"strategy_version"`
	Timeframe       string             `json:"timeframe"`
	Timezone        string             `json:"timezone"`
	FillModel       string             `json:"fill_model"`
	Costs           Costs              `json:"costs"`
	Indicators      []IndicatorDef     `json:"indicators"`
	Rules           Rules              `json:"rules"`
	Parameters      map[string]float64 `json:"parameters"`
	ParityVector    ParityVector       `json:"parity_vector"`
}

// minParityVectorLength is the minimum contiguous window a parity vector
// must cover.
const minParityVectorLength = 30

// Validate checks the artifact's structural requirements: a parity vector
// of at least 30 bars containing at least one entry and one exit (a return
// to flat or a reversal through it).
func (a StrategyArtifact) Validate() error {
	rows := a.ParityVector.Rows
	if len(rows) < minParityVectorLength {
		return errs.Newf(errs.InvalidConfig, "parity vector has %d bars, need at least %d", len(rows), minParityVectorLength)
	}
	var sawEntry, sawExit bool
	prev := 0
	for _, row := range rows {
		if prev == 0 && row.Position != 0 {
			sawEntry = true
		}
		if prev != 0 && row.Position != prev {
			sawExit = true
		}
		prev = row.Position
	}
	if !sawEntry || !sawExit {
		return errs.New(errs.InvalidConfig, "parity vector must contain at least one entry and one exit")
	}
	return nil
}

// Marshal serializes the artifact to indented JSON.
func (a StrategyArtifact) Marshal() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "marshal strategy artifact")
	}
	return data, nil
}

// RepresentableIndicators lists the indicator names the DSL can express —
// exactly the names a family view can emit. Export fails with
// UnrepresentableIndicator for anything else.
var RepresentableIndicators = map[string]bool{
	"sma": true, "donchian": true, "parabolic_sar": true, "opening_range": true,
}

// RequireRepresentable rejects export for an indicator the DSL cannot
// express, naming the offender rather than silently dropping it.
func RequireRepresentable(name string) error {
	if !RepresentableIndicators[name] {
		return errs.Newf(errs.UnrepresentableIndicator, "indicator %q has no DSL representation", name)
	}
	return nil
}
