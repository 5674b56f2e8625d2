package starkcurve

import "math/big"

// Pedersen hash constant points. P0/P1 absorb the low 248 bits and high
// 4 bits of the first input, P2/P3 the second; the shift point keeps the
// accumulator off the identity.
var (
	shiftPoint = Point{
		X: mustBig("0x49ee3eba8c1600700ee1b87eb599f16716b0b1022947733551fde4050ca6804"),
		Y: mustBig("0x3ca0cfe4b3bc6ddf346d49d06ea0ed34e621062c0e056c1d0405d266e10268a"),
	}
	pedersenPoints = [4]Point{
		{
			X: mustBig("0x234287dcbaffe7f969c748655fca9e58fa8120b6d56eb0c1080d17957ebe47b"),
			Y: mustBig("0x3b056f100f96fb21e889527d41f4e39940135dd7a6c94cc6ed0268ee89e5615"),
		},
		{
			X: mustBig("0x4fa56f376c83db33f9dab2656558f3399099ec1de5e3018b7a6932dba8aa378"),
			Y: mustBig("0x3fa0984c931c9e38113e0c0e47e4401562761f92a7a23b45168f4e80ff5b54d"),
		},
		{
			X: mustBig("0x4ba4cc166be8dec764910f75b45f74b40c690c74709e90f3aa372f0bd2d6997"),
			Y: mustBig("0x40301cf5c1751f4b971e46c4ede85fcac5c59a5ce5ae7c48151f27b24b219c"),
		},
		{
			X: mustBig("0x54302dcb0e6cc1c6e44cca8f61a63bb2ca65048d53fb325d36ff12c49a58202"),
			Y: mustBig("0x1b77b3e37d13504b348046268d8ae25ce98ad783c25561a879dcc77e99c2426"),
		},
	}

	low248Mask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 248), big.NewInt(1))
)

// Pedersen computes the two-element Pedersen hash h(a, b). Inputs must be
// field elements; the result is a field element.
func Pedersen(a, b *big.Int) *big.Int {
	acc := shiftPoint
	acc = absorb(acc, a, pedersenPoints[0], pedersenPoints[1])
	acc = absorb(acc, b, pedersenPoints[2], pedersenPoints[3])
	return new(big.Int).Set(acc.X)
}

// absorb folds one input into the accumulator using its low/high points.
func absorb(acc Point, v *big.Int, lowPt, highPt Point) Point {
	low := new(big.Int).And(v, low248Mask)
	high := new(big.Int).Rsh(v, 248)
	if low.Sign() != 0 {
		acc = add(acc, scalarMul(low, lowPt))
	}
	if high.Sign() != 0 {
		acc = add(acc, scalarMul(high, highPt))
	}
	return acc
}

// HashElements computes the chained Pedersen hash over a sequence:
// h(...h(h(0, e0), e1)..., en) finalized with the element count. This is
// the hash used for calldata digests, transaction hashes, and contract
// address derivation.
func HashElements(elems []*big.Int) *big.Int {
	acc := new(big.Int)
	for _, e := range elems {
		acc = Pedersen(acc, e)
	}
	return Pedersen(acc, big.NewInt(int64(len(elems))))
}
