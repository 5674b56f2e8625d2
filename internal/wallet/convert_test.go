package wallet

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals int32
		want     string
	}{
		{"whole eth", "1", 18, "1000000000000000000"},
		{"fractional eth", "1.5", 18, "1500000000000000000"},
		{"smallest eth unit", "0.000000000000000001", 18, "1"},
		{"usdc", "12.345678", 6, "12345678"},
		{"trailing zeros", "2.500000", 6, "2500000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tc.amount)
			got, err := ToBaseUnits(amount, tc.decimals)
			if err != nil {
				t.Fatalf("ToBaseUnits failed: %v", err)
			}
			if got.String() != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestToBaseUnitsRejects(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals int32
	}{
		{"zero", "0", 18},
		{"negative", "-1", 18},
		{"excess precision", "0.1234567", 6},
		{"sub unit", "0.0000000000000000001", 18},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tc.amount)
			if _, err := ToBaseUnits(amount, tc.decimals); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestFromBaseUnitsInverse(t *testing.T) {
	amount := decimal.RequireFromString("3.141592")
	base, err := ToBaseUnits(amount, 6)
	if err != nil {
		t.Fatalf("ToBaseUnits failed: %v", err)
	}
	if got := FromBaseUnits(base, 6); !got.Equal(amount) {
		t.Errorf("round trip mismatch: got %s, want %s", got, amount)
	}
}

func TestSplitCombineUint256(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)),
		new(big.Int).Lsh(big.NewInt(1), 128),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
	}

	for _, v := range cases {
		low, high := SplitUint256(v)
		if low.BitLen() > 128 || high.BitLen() > 128 {
			t.Errorf("split of %s produced oversized halves", v)
		}
		if got := CombineUint256(low, high); got.Cmp(v) != 0 {
			t.Errorf("split/combine of %s: got %s", v, got)
		}
	}
}
