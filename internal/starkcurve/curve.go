// Package starkcurve implements the elliptic curve arithmetic required for
// account key derivation and transaction signing: the curve
// y^2 = x^3 + alpha*x + beta over the 252-bit prime field, the Pedersen
// hash built on it, and ECDSA signatures over the curve order.
package starkcurve

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidKey is returned for malformed key material. It is terminal and
// must never be retried.
var ErrInvalidKey = errors.New("invalid key material")

// Curve parameters.
var (
	// fieldPrime is 2^251 + 17*2^192 + 1.
	fieldPrime = mustBig("0x800000000000011000000000000000000000000000000000000000000000001")

	// curveOrder is the order of the generator point.
	curveOrder = mustBig("0x800000000000010ffffffffffffffffb781126dcae7b2321e66a241adc64d2f")

	curveAlpha = big.NewInt(1)
	curveBeta  = mustBig("0x6f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89")

	generator = Point{
		X: mustBig("0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca"),
		Y: mustBig("0x5668060aa49730b7be4801df46ec62de53ecd11abe43a32873000c36e8dc1f"),
	}
)

// FieldPrime returns the field modulus.
func FieldPrime() *big.Int { return new(big.Int).Set(fieldPrime) }

// Order returns the order of the generator.
func Order() *big.Int { return new(big.Int).Set(curveOrder) }

// Point is an affine curve point. The zero value with Infinity set is the
// identity element.
type Point struct {
	X, Y     *big.Int
	Infinity bool
}

func mustBig(hex string) *big.Int {
	v, ok := new(big.Int).SetString(hex[2:], 16)
	if !ok {
		panic("starkcurve: bad constant " + hex)
	}
	return v
}

func infinity() Point {
	return Point{X: new(big.Int), Y: new(big.Int), Infinity: true}
}

// add returns p + q.
func add(p, q Point) Point {
	if p.Infinity {
		return q
	}
	if q.Infinity {
		return p
	}
	if p.X.Cmp(q.X) == 0 {
		if p.Y.Cmp(q.Y) == 0 {
			return double(p)
		}
		return infinity()
	}

	// lambda = (qy - py) / (qx - px)
	num := new(big.Int).Sub(q.Y, p.Y)
	den := new(big.Int).Sub(q.X, p.X)
	den.ModInverse(den, fieldPrime)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, fieldPrime)

	x := new(big.Int).Mul(lambda, lambda)
	x.Sub(x, p.X)
	x.Sub(x, q.X)
	x.Mod(x, fieldPrime)

	y := new(big.Int).Sub(p.X, x)
	y.Mul(y, lambda)
	y.Sub(y, p.Y)
	y.Mod(y, fieldPrime)

	return Point{X: x, Y: y}
}

// double returns 2p.
func double(p Point) Point {
	if p.Infinity {
		return p
	}

	// lambda = (3*px^2 + alpha) / (2*py)
	num := new(big.Int).Mul(p.X, p.X)
	num.Mul(num, big.NewInt(3))
	num.Add(num, curveAlpha)
	den := new(big.Int).Lsh(p.Y, 1)
	den.ModInverse(den, fieldPrime)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, fieldPrime)

	x := new(big.Int).Mul(lambda, lambda)
	x.Sub(x, new(big.Int).Lsh(p.X, 1))
	x.Mod(x, fieldPrime)

	y := new(big.Int).Sub(p.X, x)
	y.Mul(y, lambda)
	y.Sub(y, p.Y)
	y.Mod(y, fieldPrime)

	return Point{X: x, Y: y}
}

// scalarMul returns k*p using double-and-add.
func scalarMul(k *big.Int, p Point) Point {
	res := infinity()
	acc := p
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			res = add(res, acc)
		}
		acc = double(acc)
	}
	return res
}

// onCurve reports whether (x, y) satisfies the curve equation.
func onCurve(x, y *big.Int) bool {
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, fieldPrime)

	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)
	rhs.Add(rhs, new(big.Int).Mul(curveAlpha, x))
	rhs.Add(rhs, curveBeta)
	rhs.Mod(rhs, fieldPrime)

	return lhs.Cmp(rhs) == 0
}

// validPrivateKey reports whether priv is a usable scalar.
func validPrivateKey(priv *big.Int) bool {
	return priv != nil && priv.Sign() > 0 && priv.Cmp(curveOrder) < 0
}

// RandomPrivateKey generates a fresh private key scalar in [1, order).
func RandomPrivateKey() (*big.Int, error) {
	max := new(big.Int).Sub(curveOrder, big.NewInt(1))
	k, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return k.Add(k, big.NewInt(1)), nil
}

// PublicKey returns the x-coordinate of priv*G, the canonical public key.
func PublicKey(priv *big.Int) (*big.Int, error) {
	p, err := PublicKeyPoint(priv)
	if err != nil {
		return nil, err
	}
	return p.X, nil
}

// PublicKeyPoint returns the full public key point priv*G.
func PublicKeyPoint(priv *big.Int) (Point, error) {
	if !validPrivateKey(priv) {
		return Point{}, ErrInvalidKey
	}
	return scalarMul(priv, generator), nil
}
