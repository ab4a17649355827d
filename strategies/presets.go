// Package strategies holds the named rule sets shipped with the bot
package strategies

import (
	"fmt"
	"sort"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Backtest presets size 10% of running capital and keep fractional quantities.
var (
	HighRR = engine.RuleSet{
		Name:                 "Strategy_1_High_RR",
		TakeProfitPct:        0.0040,
		StopLossPct:          0.0010,
		MaxHoldMinutes:       15,
		RSIBuyThreshold:      35,
		RSISellThreshold:     engine.DefaultRSISellThreshold,
		PositionSizeFraction: 0.1,
		ExitPolicy:           engine.ExitPolicyPnL,
		QuantityDecimals:     engine.UnroundedQuantity,
	}
	TightScalp = engine.RuleSet{
		Name:                 "Strategy_2_Tight_Scalp",
		TakeProfitPct:        0.0030,
		StopLossPct:          0.0010,
		MaxHoldMinutes:       10,
		RSIBuyThreshold:      30,
		RSISellThreshold:     engine.DefaultRSISellThreshold,
		PositionSizeFraction: 0.1,
		ExitPolicy:           engine.ExitPolicyPnL,
		QuantityDecimals:     engine.UnroundedQuantity,
	}
	Balanced = engine.RuleSet{
		Name:                 "Strategy_3_Balanced",
		TakeProfitPct:        0.0025,
		StopLossPct:          0.0015,
		MaxHoldMinutes:       8,
		RSIBuyThreshold:      35,
		RSISellThreshold:     engine.DefaultRSISellThreshold,
		PositionSizeFraction: 0.1,
		ExitPolicy:           engine.ExitPolicyPnL,
		QuantityDecimals:     engine.UnroundedQuantity,
	}
	HighTightMix = engine.RuleSet{
		Name:                 "High_Tight_Mix",
		TakeProfitPct:        0.0030,
		StopLossPct:          0.0015,
		MaxHoldMinutes:       10,
		RSIBuyThreshold:      30,
		RSISellThreshold:     engine.DefaultRSISellThreshold,
		PositionSizeFraction: 0.1,
		ExitPolicy:           engine.ExitPolicyPnL,
		QuantityDecimals:     engine.UnroundedQuantity,
	}

	// LiveBalanced trades 1% of buying power in whole cents of a share
	LiveBalanced = engine.RuleSet{
		Name:                 "Live_Balanced",
		TakeProfitPct:        0.0025,
		StopLossPct:          0.0015,
		MaxHoldMinutes:       8,
		RSIBuyThreshold:      35,
		RSISellThreshold:     engine.DefaultRSISellThreshold,
		PositionSizeFraction: 0.01,
		ExitPolicy:           engine.ExitPolicyPnL,
		QuantityDecimals:     engine.DefaultQuantityDecimals,
	}
)

// Backtest returns the four comparison presets in report order
func Backtest() []engine.RuleSet {
	return []engine.RuleSet{HighRR, TightScalp, Balanced, HighTightMix}
}

var byName = func() map[string]engine.RuleSet {
	m := map[string]engine.RuleSet{}
	for _, r := range append(Backtest(), LiveBalanced) {
		m[r.Name] = r
	}
	return m
}()

// Lookup finds a preset by name
func Lookup(name string) (engine.RuleSet, error) {
	r, ok := byName[name]
	if !ok {
		return engine.RuleSet{}, fmt.Errorf("unknown strategy preset %q (have %v)", name, Names())
	}
	return r, nil
}

func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
