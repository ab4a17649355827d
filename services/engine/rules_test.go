package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSetValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RuleSet)
		field  string
	}{
		{"valid", func(*RuleSet) {}, ""},
		{"tp zero", func(r *RuleSet) { r.TakeProfitPct = 0 }, "take_profit_pct"},
		{"tp one", func(r *RuleSet) { r.TakeProfitPct = 1 }, "take_profit_pct"},
		{"sl negative", func(r *RuleSet) { r.StopLossPct = -0.1 }, "stop_loss_pct"},
		{"max hold", func(r *RuleSet) { r.MaxHoldMinutes = 0 }, "max_hold_minutes"},
		{"rsi buy", func(r *RuleSet) { r.RSIBuyThreshold = 101 }, "rsi_buy_threshold"},
		{"fraction", func(r *RuleSet) { r.PositionSizeFraction = 1.5 }, "position_size_fraction"},
		{"policy", func(r *RuleSet) { r.ExitPolicy = "trailing" }, "exit_policy"},
		{"decimals", func(r *RuleSet) { r.QuantityDecimals = -3 }, "quantity_decimals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRules()
			tt.mutate(&r)
			err := r.WithDefaults().Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRuleSetDefaults(t *testing.T) {
	r := RuleSet{TakeProfitPct: 0.003, StopLossPct: 0.001, MaxHoldMinutes: 10, RSIBuyThreshold: 30}.WithDefaults()
	assert.Equal(t, "default", r.Name)
	assert.Equal(t, DefaultRSISellThreshold, r.RSISellThreshold)
	assert.Equal(t, DefaultPositionSizeFraction, r.PositionSizeFraction)
	assert.Equal(t, ExitPolicyPnL, r.ExitPolicy)
	assert.Equal(t, DefaultQuantityDecimals, r.QuantityDecimals)
}

func TestRuleSetKeepsExplicitRounding(t *testing.T) {
	base := RuleSet{TakeProfitPct: 0.003, StopLossPct: 0.001, MaxHoldMinutes: 10, RSIBuyThreshold: 30, PositionSizeFraction: 0.1}

	r := base.WithDefaults()
	assert.Equal(t, 3.33, r.Quantity(1000, 30))

	base.QuantityDecimals = WholeQuantity
	r = base.WithDefaults()
	assert.Equal(t, WholeQuantity, r.QuantityDecimals)
	assert.Equal(t, 3.0, r.Quantity(1000, 30))

	base.QuantityDecimals = UnroundedQuantity
	r = base.WithDefaults()
	assert.InDelta(t, 3.33333, r.Quantity(1000, 30), 1e-5)

	base.RSISellThreshold = 70
	assert.Equal(t, 70.0, base.WithDefaults().RSISellThreshold)
}

func TestQuantityRounding(t *testing.T) {
	assert.Equal(t, 3.33, RoundQuantity(3.3333, 2))
	assert.Equal(t, 3.0, RoundQuantity(3.3333, 0))
	assert.Equal(t, 3.0, RoundQuantity(3.3333, WholeQuantity))
	assert.Equal(t, 3.3333, RoundQuantity(3.3333, UnroundedQuantity))
	assert.Equal(t, 0.0, RoundQuantity(0.004, 2))
	assert.Equal(t, 0.0, RoundQuantity(-1, 2))

	r := testRules()
	assert.Equal(t, 5.0, r.Quantity(5000, 100))
	assert.Equal(t, 0.0, r.Quantity(0.01, 100))
}

func TestExitTriggerPnLPolicy(t *testing.T) {
	r := testRules().WithDefaults()
	pos := Position{Symbol: "AAPL", Side: SideLong, EntryPrice: 100, Quantity: 10, EntryTime: t0}

	_, hit := r.ExitTrigger(pos, 100.1, t0.Add(time.Minute))
	assert.False(t, hit)

	reason, hit := r.ExitTrigger(pos, 100.3, t0.Add(time.Minute))
	assert.True(t, hit)
	assert.Equal(t, ReasonTakeProfit, reason)

	reason, _ = r.ExitTrigger(pos, 99.8, t0.Add(time.Minute))
	assert.Equal(t, ReasonStopLoss, reason)

	reason, _ = r.ExitTrigger(pos, 100, t0.Add(8*time.Minute))
	assert.Equal(t, ReasonMaxHold, reason)

	// take-profit takes precedence over max hold
	reason, _ = r.ExitTrigger(pos, 101, t0.Add(30*time.Minute))
	assert.Equal(t, ReasonTakeProfit, reason)
}

func TestExitTriggerShortPricePolicy(t *testing.T) {
	r := testRules()
	r.ExitPolicy = ExitPolicyPrice
	pos := Position{Symbol: "MSFT", Side: SideShort, EntryPrice: 200, Quantity: 2, EntryTime: t0}

	tp, sl := r.Targets(pos)
	assert.InDelta(t, 199.5, tp, 1e-9)
	assert.InDelta(t, 200.3, sl, 1e-9)

	reason, hit := r.ExitTrigger(pos, 199.4, t0.Add(time.Minute))
	assert.True(t, hit)
	assert.Equal(t, ReasonTakeProfit, reason)

	reason, _ = r.ExitTrigger(pos, 200.4, t0.Add(time.Minute))
	assert.Equal(t, ReasonStopLoss, reason)

	_, hit = r.ExitTrigger(pos, 200, t0.Add(7*time.Minute))
	assert.False(t, hit)
}

func TestFingerprintStable(t *testing.T) {
	a, b := testRules(), testRules()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	b.MaxHoldMinutes = 9
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
