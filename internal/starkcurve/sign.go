package starkcurve

import (
	"crypto/hmac"
	"crypto/sha256"
	"math/big"
)

// Sign produces an ECDSA signature (r, s) over msgHash with priv. The
// message is already a field element (a transaction hash), so no further
// hashing is applied. The nonce is derived deterministically from the key
// and message, RFC 6979 style, so signing never consumes entropy.
func Sign(msgHash, priv *big.Int) (r, s *big.Int, err error) {
	if !validPrivateKey(priv) {
		return nil, nil, ErrInvalidKey
	}

	for counter := uint32(0); ; counter++ {
		k := deterministicK(msgHash, priv, counter)
		if k.Sign() == 0 || k.Cmp(curveOrder) >= 0 {
			continue
		}

		rp := scalarMul(k, generator)
		r = new(big.Int).Mod(rp.X, curveOrder)
		if r.Sign() == 0 {
			continue
		}

		// s = k^-1 * (m + r*priv) mod order
		s = new(big.Int).Mul(r, priv)
		s.Add(s, msgHash)
		kInv := new(big.Int).ModInverse(k, curveOrder)
		s.Mul(s, kInv)
		s.Mod(s, curveOrder)
		if s.Sign() == 0 {
			continue
		}

		return r, s, nil
	}
}

// Verify checks a signature against the public key point.
func Verify(msgHash *big.Int, r, s *big.Int, pub Point) bool {
	if r.Sign() <= 0 || r.Cmp(curveOrder) >= 0 || s.Sign() <= 0 || s.Cmp(curveOrder) >= 0 {
		return false
	}
	if !onCurve(pub.X, pub.Y) {
		return false
	}

	w := new(big.Int).ModInverse(s, curveOrder)
	u1 := new(big.Int).Mul(msgHash, w)
	u1.Mod(u1, curveOrder)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, curveOrder)

	p := add(scalarMul(u1, generator), scalarMul(u2, pub))
	if p.Infinity {
		return false
	}
	return new(big.Int).Mod(p.X, curveOrder).Cmp(r) == 0
}

// deterministicK derives a signing nonce from the private key and message
// via HMAC-SHA256. The counter handles the rare out-of-range rejection.
func deterministicK(msgHash, priv *big.Int, counter uint32) *big.Int {
	mac := hmac.New(sha256.New, priv.FillBytes(make([]byte, 32)))
	mac.Write(msgHash.FillBytes(make([]byte, 32)))
	mac.Write([]byte{
		byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter),
	})
	digest := mac.Sum(nil)

	k := new(big.Int).SetBytes(digest)
	return k.Mod(k, curveOrder)
}
