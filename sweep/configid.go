package sweep

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ConfigID derives a stable, deterministic id for a parameter combination:
// a canonical (sorted-key) serialization, hashed with xxhash. The same
// parameter tuple always produces the same id, independent of map
// iteration order or which worker computed it.
func ConfigID(strategyName string, params map[string]float64) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sortStrings(names)

	buf := make([]byte, 0, 64)
	buf = append(buf, strategyName...)
	for _, name := range names {
		buf = append(buf, '|')
		buf = append(buf, name...)
		buf = append(buf, '=')
		buf = strconv.AppendFloat(buf, params[name], 'g', -1, 64)
	}
	sum := xxhash.Sum64(buf)
	return fmt.Sprintf("%s-%016x", strategyName, sum)
}
