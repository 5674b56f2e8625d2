package wallet

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// uint256Low masks the low 128 bits of a uint256 value.
var uint256Low = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// ToBaseUnits converts a human-readable amount to the token's integer base
// units. Amounts with more fractional digits than the token carries are
// rejected rather than silently truncated.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, amount)
	}

	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: amount %s exceeds %d decimal places", ErrInvalidInput, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits converts integer base units back to a human-readable amount.
func FromBaseUnits(v *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(v, 0).Shift(-decimals)
}

// SplitUint256 splits a non-negative integer into the (low, high) 128-bit
// halves that token contracts take as a uint256 argument.
func SplitUint256(v *big.Int) (low, high *big.Int) {
	low = new(big.Int).And(v, uint256Low)
	high = new(big.Int).Rsh(v, 128)
	return low, high
}

// CombineUint256 reassembles a value from its (low, high) halves.
func CombineUint256(low, high *big.Int) *big.Int {
	v := new(big.Int).Lsh(high, 128)
	return v.Or(v, low)
}
