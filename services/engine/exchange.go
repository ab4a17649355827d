package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// Quantity decimals sentinels. The zero value of RuleSet.QuantityDecimals
// means DefaultQuantityDecimals, so whole shares need their own value.
const (
	UnroundedQuantity int32 = -1
	WholeQuantity     int32 = -2
)

// RoundQuantity rounds a share quantity to the given number of decimals
// (banker's rounding). Non-finite or non-positive input sizes to zero.
func RoundQuantity(qty float64, decimals int32) float64 {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return 0
	}
	if decimals == WholeQuantity {
		decimals = 0
	}
	if decimals < 0 {
		return qty
	}
	return decimal.NewFromFloat(qty).RoundBank(decimals).InexactFloat64()
}

// PositionSize is capital*fraction/price rounded per decimals
func PositionSize(capital, fraction, price float64, decimals int32) float64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	return RoundQuantity(capital*fraction/price, decimals)
}
