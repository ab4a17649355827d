package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

type strategyFile struct {
	Strategies []strategyEntry `yaml:"strategies"`
}

type strategyEntry struct {
	Name                 string   `yaml:"name"`
	TakeProfitPct        float64  `yaml:"take_profit_pct"`
	StopLossPct          float64  `yaml:"stop_loss_pct"`
	MaxHoldMinutes       int      `yaml:"max_hold_minutes"`
	RSIBuyThreshold      float64  `yaml:"rsi_buy_threshold"`
	RSISellThreshold     *float64 `yaml:"rsi_sell_threshold"`
	PositionSizeFraction float64  `yaml:"position_size_fraction"`
	ExitPolicy           string   `yaml:"exit_policy"`
	QuantityDecimals     *int32   `yaml:"quantity_decimals"`
}

// LoadStrategies reads named rule sets from a YAML file
func LoadStrategies(path string) ([]engine.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies: %w", err)
	}
	return ParseStrategies(data)
}

// ParseStrategies decodes and validates every rule set. Missing
// quantity_decimals means two decimals, an explicit 0 whole shares.
// rsi_sell_threshold defaults to 56 when omitted and may not be 0.
func ParseStrategies(data []byte) ([]engine.RuleSet, error) {
	var f strategyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse strategies: %w", err)
	}
	if len(f.Strategies) == 0 {
		return nil, fmt.Errorf("parse strategies: no strategies defined")
	}
	seen := map[string]bool{}
	out := make([]engine.RuleSet, 0, len(f.Strategies))
	for i, s := range f.Strategies {
		r := engine.RuleSet{
			Name:                 s.Name,
			TakeProfitPct:        s.TakeProfitPct,
			StopLossPct:          s.StopLossPct,
			MaxHoldMinutes:       s.MaxHoldMinutes,
			RSIBuyThreshold:      s.RSIBuyThreshold,
			PositionSizeFraction: s.PositionSizeFraction,
			ExitPolicy:           engine.ExitPolicy(s.ExitPolicy),
			QuantityDecimals:     engine.DefaultQuantityDecimals,
		}
		if s.QuantityDecimals != nil {
			r.QuantityDecimals = *s.QuantityDecimals
			if r.QuantityDecimals == 0 {
				r.QuantityDecimals = engine.WholeQuantity
			}
		}
		if s.RSISellThreshold != nil {
			if *s.RSISellThreshold == 0 {
				return nil, fmt.Errorf("strategy %d (%s): %w", i, s.Name,
					&engine.ValidationError{Field: "rsi_sell_threshold", Msg: "must be above 0 (omit it for the default 56)"})
			}
			r.RSISellThreshold = *s.RSISellThreshold
		}
		r = r.WithDefaults()
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("strategy %d (%s): %w", i, s.Name, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("strategy %q defined twice", r.Name)
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, nil
}
