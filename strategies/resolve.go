package strategies

import (
	"fmt"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/config"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Catalog is the rule sets of a YAML file, or every preset when path is empty
func Catalog(path string) ([]engine.RuleSet, error) {
	if path == "" {
		return append(Backtest(), LiveBalanced), nil
	}
	return config.LoadStrategies(path)
}

// Resolve picks names out of the catalog at path. Without names it returns
// the whole file, or the four backtest presets when path is empty.
func Resolve(path string, names []string) ([]engine.RuleSet, error) {
	if len(names) == 0 {
		if path == "" {
			return Backtest(), nil
		}
		return config.LoadStrategies(path)
	}
	catalog, err := Catalog(path)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]engine.RuleSet, len(catalog))
	for _, r := range catalog {
		byName[r.Name] = r
	}
	out := make([]engine.RuleSet, 0, len(names))
	for _, n := range names {
		r, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", n)
		}
		out = append(out, r)
	}
	return out, nil
}
