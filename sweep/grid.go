// Package sweep is the parameter sweep orchestrator: grid expansion,
// deterministic config ids, parallel scheduling, ranking, and optional
// walk-forward validation.
package sweep

import "github.com/trendlab/trendlab/errs"

// Depth selects one of the three grid-density presets a strategy declares
// its parameter space at.
type Depth int

const (
	Quick Depth = iota
	Standard
	Comprehensive
)

// ParamSpace maps a parameter name to the set of values to try at a given
// Depth.
type ParamSpace map[string][]float64

// StrategySpec is one strategy family's declared parameter space and the
// structural validity filter applied during expansion (e.g. fast >= slow
// in an MA crossover is never a valid configuration).
type StrategySpec struct {
	Name  string
	Space map[Depth]ParamSpace
	Valid func(params map[string]float64) bool
}

// Validate rejects a structurally nonsensical StrategySpec eagerly, before
// Expand walks its grid.
func (s StrategySpec) Validate() error {
	if s.Name == "" {
		return errs.New(errs.InvalidConfig, "StrategySpec.Name must not be empty")
	}
	if len(s.Space) == 0 {
		return errs.Newf(errs.InvalidConfig, "strategy %q declares no parameter space at any depth", s.Name)
	}
	for depth, space := range s.Space {
		if len(space) == 0 {
			return errs.Newf(errs.InvalidConfig, "strategy %q has an empty parameter space at depth %d", s.Name, depth)
		}
		for name, values := range space {
			if len(values) == 0 {
				return errs.Newf(errs.InvalidConfig, "strategy %q parameter %q has no candidate values at depth %d", s.Name, name, depth)
			}
		}
	}
	return nil
}

// Expand computes the Cartesian product of spec's ParamSpace at depth,
// dropping any combination Valid rejects.
func Expand(spec StrategySpec, depth Depth) ([]map[string]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	space, ok := spec.Space[depth]
	if !ok {
		return nil, errs.Newf(errs.InvalidConfig, "strategy %q has no parameter space declared for this depth preset", spec.Name)
	}
	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}
	sortStrings(names)

	var out []map[string]float64
	var recurse func(i int, acc map[string]float64)
	recurse = func(i int, acc map[string]float64) {
		if i == len(names) {
			cp := make(map[string]float64, len(acc))
			for k, v := range acc {
				cp[k] = v
			}
			if spec.Valid == nil || spec.Valid(cp) {
				out = append(out, cp)
			}
			return
		}
		name := names[i]
		for _, v := range space[name] {
			acc[name] = v
			recurse(i+1, acc)
		}
		delete(acc, name)
	}
	recurse(0, map[string]float64{})

	if len(out) == 0 {
		return nil, errs.Newf(errs.InvalidConfig, "strategy %q's parameter grid produced no valid configurations", spec.Name)
	}
	return out, nil
}

// sortStrings is a small insertion sort over parameter names.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
