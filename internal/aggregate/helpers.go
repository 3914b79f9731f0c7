package aggregate

import (
	"math/big"
)

const (
	ratioScale    = 18
	tokenDecimals = 18
)

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// ratio renders num/den with ratioScale decimals; empty when den is zero.
func ratio(num, den *big.Int) string {
	if num == nil || den == nil || den.Sign() == 0 {
		return ""
	}
	return new(big.Rat).SetFrac(num, den).FloatString(ratioScale)
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
