package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
	"time"
)

// ExitPolicy selects how take-profit and stop-loss are measured
type ExitPolicy string

const (
	// ExitPolicyPnL compares unrealized PnL with entry*pct*qty
	ExitPolicyPnL ExitPolicy = "pnl_threshold"
	// ExitPolicyPrice compares the close with entry*(1±pct)
	ExitPolicyPrice ExitPolicy = "price_threshold"
)

const (
	DefaultRSISellThreshold     = 56.0
	DefaultPositionSizeFraction = 0.1
	DefaultQuantityDecimals     = int32(2)
	defaultRuleSetName          = "default"
)

// RuleSet is an immutable, validated parameterization of the strategy
type RuleSet struct {
	Name            string  `json:"name" yaml:"name"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	MaxHoldMinutes  int     `json:"max_hold_minutes" yaml:"max_hold_minutes"`
	RSIBuyThreshold float64 `json:"rsi_buy_threshold" yaml:"rsi_buy_threshold"`
	// RSISellThreshold of zero means DefaultRSISellThreshold
	RSISellThreshold     float64    `json:"rsi_sell_threshold" yaml:"rsi_sell_threshold"`
	PositionSizeFraction float64    `json:"position_size_fraction" yaml:"position_size_fraction"`
	ExitPolicy           ExitPolicy `json:"exit_policy" yaml:"exit_policy"`
	// QuantityDecimals of zero means DefaultQuantityDecimals. WholeQuantity
	// rounds to whole shares, UnroundedQuantity disables rounding.
	QuantityDecimals int32 `json:"quantity_decimals" yaml:"quantity_decimals"`
}

// WithDefaults fills the optional fields left at their zero value
func (r RuleSet) WithDefaults() RuleSet {
	if strings.TrimSpace(r.Name) == "" {
		r.Name = defaultRuleSetName
	}
	if r.RSISellThreshold == 0 {
		r.RSISellThreshold = DefaultRSISellThreshold
	}
	if r.PositionSizeFraction == 0 {
		r.PositionSizeFraction = DefaultPositionSizeFraction
	}
	if r.ExitPolicy == "" {
		r.ExitPolicy = ExitPolicyPnL
	}
	if r.QuantityDecimals == 0 {
		r.QuantityDecimals = DefaultQuantityDecimals
	}
	return r
}

func (r RuleSet) Validate() error {
	switch {
	case !openUnit(r.TakeProfitPct):
		return invalid("take_profit_pct", "must be in (0,1), got %v", r.TakeProfitPct)
	case !openUnit(r.StopLossPct):
		return invalid("stop_loss_pct", "must be in (0,1), got %v", r.StopLossPct)
	case r.MaxHoldMinutes <= 0:
		return invalid("max_hold_minutes", "must be positive, got %d", r.MaxHoldMinutes)
	case !percentile(r.RSIBuyThreshold):
		return invalid("rsi_buy_threshold", "must be in [0,100], got %v", r.RSIBuyThreshold)
	case !percentile(r.RSISellThreshold):
		return invalid("rsi_sell_threshold", "must be in [0,100], got %v", r.RSISellThreshold)
	case !(r.PositionSizeFraction > 0 && r.PositionSizeFraction <= 1):
		return invalid("position_size_fraction", "must be in (0,1], got %v", r.PositionSizeFraction)
	case r.ExitPolicy != ExitPolicyPnL && r.ExitPolicy != ExitPolicyPrice:
		return invalid("exit_policy", "unknown policy %q", r.ExitPolicy)
	case r.QuantityDecimals < WholeQuantity || r.QuantityDecimals > 8:
		return invalid("quantity_decimals", "must be in [-2,8], got %d", r.QuantityDecimals)
	}
	return nil
}

func openUnit(v float64) bool   { return v > 0 && v < 1 }
func percentile(v float64) bool { return !math.IsNaN(v) && v >= 0 && v <= 100 }

func (r RuleSet) MaxHold() time.Duration {
	return time.Duration(r.MaxHoldMinutes) * time.Minute
}

// Quantity sizes a new position from available capital at price
func (r RuleSet) Quantity(capital, price float64) float64 {
	return PositionSize(capital, r.PositionSizeFraction, price, r.QuantityDecimals)
}

// Targets returns take-profit and stop-loss price levels for a position
func (r RuleSet) Targets(p Position) (takeProfit, stopLoss float64) {
	if p.Side == SideShort {
		return p.EntryPrice * (1 - r.TakeProfitPct), p.EntryPrice * (1 + r.StopLossPct)
	}
	return p.EntryPrice * (1 + r.TakeProfitPct), p.EntryPrice * (1 - r.StopLossPct)
}

// ExitTrigger reports which exit condition fires for p at price and time at.
// Take-profit wins over stop-loss, stop-loss over max hold.
func (r RuleSet) ExitTrigger(p Position, price float64, at time.Time) (Reason, bool) {
	if r.ExitPolicy == ExitPolicyPrice {
		tp, sl := r.Targets(p)
		if p.Side == SideShort {
			if price <= tp {
				return ReasonTakeProfit, true
			}
			if price >= sl {
				return ReasonStopLoss, true
			}
		} else {
			if price >= tp {
				return ReasonTakeProfit, true
			}
			if price <= sl {
				return ReasonStopLoss, true
			}
		}
	} else {
		pnl := p.UnrealizedPnL(price)
		notional := p.EntryPrice * p.Quantity
		if pnl >= notional*r.TakeProfitPct {
			return ReasonTakeProfit, true
		}
		if pnl <= -notional*r.StopLossPct {
			return ReasonStopLoss, true
		}
	}
	if p.Held(at) >= r.MaxHold() {
		return ReasonMaxHold, true
	}
	return "", false
}

// Fingerprint is a stable hash of the rule set used in run manifests
func (r RuleSet) Fingerprint() string {
	b, _ := json.Marshal(r)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
