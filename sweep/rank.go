package sweep

import "math"

// ConfigResult is one ranked configuration's metrics for one symbol.
type ConfigResult struct {
	ConfigID string
	Symbol   string
	Primary  float64 // the chosen primary ranking metric, e.g. Sharpe
	Metrics  map[string]float64
}

// RankBySymbol sorts results for a single symbol by Primary descending,
// breaking ties by ConfigID ascending (lexicographic), so the ranked order
// is deterministic regardless of scheduling order.
func RankBySymbol(results []ConfigResult) []ConfigResult {
	out := append([]ConfigResult(nil), results...)
	// insertion sort: result sets are small (bounded by a grid's size).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func less(a, b ConfigResult) bool {
	if a.Primary != b.Primary {
		return a.Primary > b.Primary
	}
	return a.ConfigID < b.ConfigID
}

// CrossSymbolAggregate is a config's rolled-up metrics across every symbol
// it was evaluated on.
type CrossSymbolAggregate struct {
	ConfigID        string
	AvgSharpe       float64
	MinSharpe       float64
	GeoMeanCAGR     float64
	HitRate         float64 // fraction of symbols with positive Sharpe
	WorstDrawdown   float64
	SymbolCount     int
}

// Aggregate rolls up per-symbol results sharing the same ConfigID. perConfig
// maps config_id -> the results for that config across symbols; each
// result's Metrics must contain "sharpe", "cagr", and "max_drawdown".
func Aggregate(perConfig map[string][]ConfigResult) []CrossSymbolAggregate {
	configIDs := make([]string, 0, len(perConfig))
	for id := range perConfig {
		configIDs = append(configIDs, id)
	}
	sortStrings(configIDs)

	out := make([]CrossSymbolAggregate, 0, len(configIDs))
	for _, id := range configIDs {
		results := perConfig[id]
		if len(results) == 0 {
			continue
		}
		var sharpeSum, logCagrSum, worstDD float64
		minSharpe := math.Inf(1)
		var positiveCount int
		for _, r := range results {
			sharpe := r.Metrics["sharpe"]
			cagr := r.Metrics["cagr"]
			dd := r.Metrics["max_drawdown"]
			sharpeSum += sharpe
			if sharpe < minSharpe {
				minSharpe = sharpe
			}
			if sharpe > 0 {
				positiveCount++
			}
			if 1+cagr > 0 {
				logCagrSum += math.Log(1 + cagr)
			}
			if dd < worstDD {
				worstDD = dd
			}
		}
		n := float64(len(results))
		out = append(out, CrossSymbolAggregate{
			ConfigID:      id,
			AvgSharpe:     sharpeSum / n,
			MinSharpe:     minSharpe,
			GeoMeanCAGR:   math.Exp(logCagrSum/n) - 1,
			HitRate:       float64(positiveCount) / n,
			WorstDrawdown: worstDD,
			SymbolCount:   len(results),
		})
	}
	return out
}
