// Package account implements deterministic account-address derivation and
// the signing account used to submit transactions.
package account

import (
	"math/big"

	"stark-wallet/internal/starkcurve"
)

var (
	// contractAddressPrefix is the short string "STARKNET_CONTRACT_ADDRESS".
	contractAddressPrefix = starkcurve.EncodeShortString("STARKNET_CONTRACT_ADDRESS")

	// addressBound is 2^251 - 256; derived addresses are reduced into it.
	addressBound = new(big.Int).Sub(
		new(big.Int).Lsh(big.NewInt(1), 251),
		big.NewInt(256),
	)
)

// Keypair is freshly generated key material. The private key must never
// leave the custody boundary except transiently during one operation.
type Keypair struct {
	PrivateKey *big.Int
	PublicKey  *big.Int
}

// GenerateKeypair produces a fresh account key pair.
func GenerateKeypair() (*Keypair, error) {
	priv, err := starkcurve.RandomPrivateKey()
	if err != nil {
		return nil, err
	}
	pub, err := starkcurve.PublicKey(priv)
	if err != nil {
		return nil, err
	}
	return &Keypair{PrivateKey: priv, PublicKey: pub}, nil
}

// ConstructorCalldata builds the account contract's constructor arguments:
// owner public key, no guardian.
func ConstructorCalldata(publicKey *big.Int) []*big.Int {
	return []*big.Int{new(big.Int).Set(publicKey), big.NewInt(0)}
}

// DeriveAddress computes the account contract address for a public key
// under the given class hash. Pure and deterministic: the same inputs
// always produce the same address, and the address is reproducible from
// the private key alone. The public key doubles as the address salt.
//
// Changing the class hash invalidates every previously derived address: it
// is schema and must be versioned, never silently swapped.
func DeriveAddress(publicKey, classHash *big.Int) *big.Int {
	return ComputeAddress(classHash, publicKey, ConstructorCalldata(publicKey))
}

// ComputeAddress is the raw address formula: the chained Pedersen hash of
// the fixed prefix, deployer (zero), salt, class hash and constructor
// calldata digest, reduced modulo the address bound.
func ComputeAddress(classHash, salt *big.Int, constructorCalldata []*big.Int) *big.Int {
	h := starkcurve.HashElements([]*big.Int{
		contractAddressPrefix,
		big.NewInt(0), // deployer
		salt,
		classHash,
		starkcurve.HashElements(constructorCalldata),
	})
	return h.Mod(h, addressBound)
}
