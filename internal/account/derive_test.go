package account

import (
	"math/big"
	"testing"
)

var testClassHash = big.NewInt(0x1234abcd)

func TestDeriveAddressDeterministic(t *testing.T) {
	pub := big.NewInt(0x7777)

	a1 := DeriveAddress(pub, testClassHash)
	a2 := DeriveAddress(pub, testClassHash)
	if a1.Cmp(a2) != 0 {
		t.Errorf("address not deterministic: %s vs %s", a1, a2)
	}
}

func TestDeriveAddressClassHashSensitive(t *testing.T) {
	pub := big.NewInt(0x7777)

	a1 := DeriveAddress(pub, testClassHash)
	a2 := DeriveAddress(pub, big.NewInt(0x5678))
	if a1.Cmp(a2) == 0 {
		t.Error("address must depend on the class hash")
	}
}

func TestDeriveAddressKeySensitive(t *testing.T) {
	a1 := DeriveAddress(big.NewInt(0x7777), testClassHash)
	a2 := DeriveAddress(big.NewInt(0x7778), testClassHash)
	if a1.Cmp(a2) == 0 {
		t.Error("address must depend on the public key")
	}
}

func TestDeriveAddressBounded(t *testing.T) {
	for _, pub := range []*big.Int{big.NewInt(1), big.NewInt(0xffffffff)} {
		addr := DeriveAddress(pub, testClassHash)
		if addr.Sign() <= 0 || addr.Cmp(addressBound) >= 0 {
			t.Errorf("address %s outside [1, 2^251-256)", addr)
		}
	}
}

func TestConstructorCalldataZeroGuardian(t *testing.T) {
	pub := big.NewInt(0x9999)
	calldata := ConstructorCalldata(pub)

	if len(calldata) != 2 {
		t.Fatalf("calldata length: got %d, want 2", len(calldata))
	}
	if calldata[0].Cmp(pub) != 0 {
		t.Errorf("owner: got %s, want %s", calldata[0], pub)
	}
	if calldata[1].Sign() != 0 {
		t.Errorf("guardian: got %s, want 0", calldata[1])
	}
}

func TestComputeAddressMatchesDerive(t *testing.T) {
	pub := big.NewInt(0xabc)

	derived := DeriveAddress(pub, testClassHash)
	computed := ComputeAddress(testClassHash, pub, ConstructorCalldata(pub))
	if derived.Cmp(computed) != 0 {
		t.Errorf("DeriveAddress and ComputeAddress disagree: %s vs %s", derived, computed)
	}
}

func TestGenerateKeypairDistinct(t *testing.T) {
	kp1, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	kp2, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}

	if kp1.PrivateKey.Cmp(kp2.PrivateKey) == 0 {
		t.Error("two generated keypairs share a private key")
	}
	if DeriveAddress(kp1.PublicKey, testClassHash).Cmp(DeriveAddress(kp2.PublicKey, testClassHash)) == 0 {
		t.Error("two generated keypairs derive the same address")
	}
}
