package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

func TestPresetsValid(t *testing.T) {
	for _, r := range append(Backtest(), LiveBalanced) {
		assert.NoError(t, r.Validate(), r.Name)
		assert.Equal(t, r, r.WithDefaults(), "%s has no implicit defaults", r.Name)
	}
	assert.Len(t, Backtest(), 4)
}

func TestLookup(t *testing.T) {
	r, err := Lookup("High_Tight_Mix")
	require.NoError(t, err)
	assert.Equal(t, 10, r.MaxHoldMinutes)

	_, err = Lookup("nope")
	assert.ErrorContains(t, err, "Strategy_1_High_RR")
	assert.Len(t, Names(), 5)
}

func TestResolve(t *testing.T) {
	rs, err := Resolve("", nil)
	require.NoError(t, err)
	assert.Equal(t, Backtest(), rs)

	rs, err = Resolve("", []string{"Live_Balanced"})
	require.NoError(t, err)
	assert.Equal(t, []engine.RuleSet{LiveBalanced}, rs)

	rs, err = Resolve("strategies.yaml", nil)
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, Balanced, rs[0])
	assert.Equal(t, engine.ExitPolicyPrice, rs[1].ExitPolicy)
	assert.Equal(t, int32(2), rs[1].QuantityDecimals)
	assert.Equal(t, 60.0, rs[1].RSISellThreshold)

	rs, err = Resolve("strategies.yaml", []string{"Live_Balanced"})
	require.NoError(t, err)
	assert.Equal(t, 0.01, rs[0].PositionSizeFraction)

	_, err = Resolve("strategies.yaml", []string{"Strategy_1_High_RR"})
	assert.ErrorContains(t, err, "unknown strategy")
}
