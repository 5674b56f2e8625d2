package starkcurve

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// FromHex parses a 0x-prefixed hex field element.
func FromHex(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty field element")
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("malformed field element %q", s)
	}
	if v.Cmp(fieldPrime) >= 0 {
		return nil, fmt.Errorf("field element %q out of range", s)
	}
	return v, nil
}

// ToHex renders a field element as 0x-prefixed lowercase hex.
func ToHex(v *big.Int) string {
	return "0x" + v.Text(16)
}

// ToHexSlice renders a felt slice for the wire.
func ToHexSlice(vs []*big.Int) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = ToHex(v)
	}
	return out
}

// EncodeShortString encodes an ASCII string of at most 31 characters as a
// field element, the network's convention for chain ids and hash prefixes.
func EncodeShortString(s string) *big.Int {
	if len(s) > 31 {
		panic("starkcurve: short string longer than 31 bytes")
	}
	return new(big.Int).SetBytes([]byte(s))
}

// selectorMask keeps the low 250 bits of the keccak digest.
var selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// Selector computes a contract entry point selector: keccak256 of the
// entry point name truncated to 250 bits.
func Selector(name string) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	sel := new(big.Int).SetBytes(h.Sum(nil))
	return sel.And(sel, selectorMask)
}
