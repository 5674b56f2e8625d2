package starkcurve

import (
	"math/big"
	"testing"
)

func TestFromHexRoundTrip(t *testing.T) {
	v, err := FromHex("0x1a2b3c")
	if err != nil {
		t.Fatalf("FromHex failed: %v", err)
	}
	if got := ToHex(v); got != "0x1a2b3c" {
		t.Errorf("round trip mismatch: got %s", got)
	}
}

func TestFromHexRejectsOutOfField(t *testing.T) {
	over := ToHex(new(big.Int).Set(fieldPrime))
	if _, err := FromHex(over); err == nil {
		t.Error("FromHex accepted a value >= field prime")
	}
}

func TestFromHexRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "0x", "0xzz", "nothex"} {
		if _, err := FromHex(s); err == nil {
			t.Errorf("FromHex(%q) accepted malformed input", s)
		}
	}
}

func TestEncodeShortString(t *testing.T) {
	got := EncodeShortString("SN_MAIN")
	want := new(big.Int).SetBytes([]byte("SN_MAIN"))
	if got.Cmp(want) != 0 {
		t.Errorf("EncodeShortString: got %s, want %s", got, want)
	}
}

func TestSelectorBounded(t *testing.T) {
	bound := new(big.Int).Lsh(big.NewInt(1), 250)
	for _, name := range []string{"transfer", "balanceOf", "upgrade", "__execute__"} {
		sel := Selector(name)
		if sel.Cmp(bound) >= 0 {
			t.Errorf("Selector(%q) exceeds 250 bits", name)
		}
	}
}

func TestSelectorDistinct(t *testing.T) {
	if Selector("transfer").Cmp(Selector("approve")) == 0 {
		t.Error("different entry points produced the same selector")
	}
}

func TestSelectorKnownValue(t *testing.T) {
	// Well-known ERC20 transfer selector.
	want, _ := new(big.Int).SetString("83afd3f4caedc6eebf44246fe54e38c95e3179a5ec9ea81740eca5b482d12e", 16)
	if got := Selector("transfer"); got.Cmp(want) != 0 {
		t.Errorf("Selector(transfer): got %s, want %s", got.Text(16), want.Text(16))
	}
}
