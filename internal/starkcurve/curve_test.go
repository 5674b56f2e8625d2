package starkcurve

import (
	"errors"
	"math/big"
	"testing"
)

func TestGeneratorOnCurve(t *testing.T) {
	if !onCurve(generator.X, generator.Y) {
		t.Fatal("generator point is not on the curve")
	}
}

func TestPublicKeyDeterministic(t *testing.T) {
	priv := big.NewInt(123456789)

	pub1, err := PublicKey(priv)
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}
	pub2, err := PublicKey(priv)
	if err != nil {
		t.Fatalf("PublicKey failed: %v", err)
	}

	if pub1.Cmp(pub2) != 0 {
		t.Errorf("public key not deterministic: %s vs %s", pub1, pub2)
	}
}

func TestPublicKeyPointOnCurve(t *testing.T) {
	priv := big.NewInt(987654321)

	p, err := PublicKeyPoint(priv)
	if err != nil {
		t.Fatalf("PublicKeyPoint failed: %v", err)
	}
	if !onCurve(p.X, p.Y) {
		t.Error("derived public key point is not on the curve")
	}
}

func TestInvalidPrivateKeys(t *testing.T) {
	cases := []struct {
		name string
		priv *big.Int
	}{
		{"zero", big.NewInt(0)},
		{"negative", big.NewInt(-1)},
		{"order", new(big.Int).Set(curveOrder)},
		{"above order", new(big.Int).Add(curveOrder, big.NewInt(1))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PublicKey(tc.priv); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("PublicKey(%s): got %v, want ErrInvalidKey", tc.priv, err)
			}
		})
	}
}

func TestRandomPrivateKeyInRange(t *testing.T) {
	for i := 0; i < 32; i++ {
		priv, err := RandomPrivateKey()
		if err != nil {
			t.Fatalf("RandomPrivateKey failed: %v", err)
		}
		if priv.Sign() <= 0 || priv.Cmp(curveOrder) >= 0 {
			t.Fatalf("private key out of range: %s", priv)
		}
	}
}

func TestPedersenDeterministic(t *testing.T) {
	a := big.NewInt(31337)
	b := big.NewInt(42)

	h1 := Pedersen(a, b)
	h2 := Pedersen(a, b)
	if h1.Cmp(h2) != 0 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}
}

func TestPedersenAsymmetric(t *testing.T) {
	a := big.NewInt(31337)
	b := big.NewInt(42)

	if Pedersen(a, b).Cmp(Pedersen(b, a)) == 0 {
		t.Error("Pedersen(a, b) must differ from Pedersen(b, a)")
	}
}

func TestPedersenInField(t *testing.T) {
	h := Pedersen(big.NewInt(1), big.NewInt(2))
	if h.Sign() < 0 || h.Cmp(fieldPrime) >= 0 {
		t.Errorf("hash outside field: %s", h)
	}
}

func TestHashElementsLengthSensitive(t *testing.T) {
	xs := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	padded := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(0)}

	if HashElements(xs).Cmp(HashElements(padded)) == 0 {
		t.Error("chain hash must distinguish inputs of different lengths")
	}
}

func TestHashElementsOrderSensitive(t *testing.T) {
	ab := []*big.Int{big.NewInt(7), big.NewInt(8)}
	ba := []*big.Int{big.NewInt(8), big.NewInt(7)}

	if HashElements(ab).Cmp(HashElements(ba)) == 0 {
		t.Error("chain hash must be order sensitive")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv := big.NewInt(0xdeadbeef)
	pub, err := PublicKeyPoint(priv)
	if err != nil {
		t.Fatalf("PublicKeyPoint failed: %v", err)
	}

	msg := Pedersen(big.NewInt(100), big.NewInt(200))

	r, s, err := Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !Verify(msg, r, s, pub) {
		t.Error("valid signature did not verify")
	}
}

func TestSignDeterministic(t *testing.T) {
	priv := big.NewInt(0xcafe)
	msg := big.NewInt(12345)

	r1, s1, err := Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	r2, s2, err := Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if r1.Cmp(r2) != 0 || s1.Cmp(s2) != 0 {
		t.Error("signature must be deterministic for the same key and message")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	priv := big.NewInt(0xfeed)
	pub, err := PublicKeyPoint(priv)
	if err != nil {
		t.Fatalf("PublicKeyPoint failed: %v", err)
	}

	msg := big.NewInt(555)
	r, s, err := Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	tampered := new(big.Int).Add(msg, big.NewInt(1))
	if Verify(tampered, r, s, pub) {
		t.Error("signature verified against a different message")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv := big.NewInt(0xbeef)
	otherPub, err := PublicKeyPoint(big.NewInt(0xbead))
	if err != nil {
		t.Fatalf("PublicKeyPoint failed: %v", err)
	}

	msg := big.NewInt(777)
	r, s, err := Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if Verify(msg, r, s, otherPub) {
		t.Error("signature verified under a different public key")
	}
}
