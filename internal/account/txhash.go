package account

import (
	"math/big"

	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

var (
	invokePrefix        = starkcurve.EncodeShortString("invoke")
	deployAccountPrefix = starkcurve.EncodeShortString("deploy_account")
)

// invokeV1Hash computes the version-1 invoke transaction hash.
func invokeV1Hash(sender *big.Int, calldata []*big.Int, maxFee, chainID, nonce *big.Int) *big.Int {
	return starkcurve.HashElements([]*big.Int{
		invokePrefix,
		big.NewInt(1), // version
		sender,
		big.NewInt(0), // entry point selector, unused in v1
		starkcurve.HashElements(calldata),
		maxFee,
		chainID,
		nonce,
	})
}

// deployAccountV1Hash computes the version-1 deploy-account transaction hash.
func deployAccountV1Hash(contractAddress, classHash, salt *big.Int, constructorCalldata []*big.Int, maxFee, chainID, nonce *big.Int) *big.Int {
	inner := make([]*big.Int, 0, len(constructorCalldata)+2)
	inner = append(inner, classHash, salt)
	inner = append(inner, constructorCalldata...)

	return starkcurve.HashElements([]*big.Int{
		deployAccountPrefix,
		big.NewInt(1), // version
		contractAddress,
		big.NewInt(0), // entry point selector, unused
		starkcurve.HashElements(inner),
		maxFee,
		chainID,
		nonce,
	})
}

// flattenCalls encodes a multicall for the account's execute entry point:
// call count, then per call the target, selector, calldata length and
// calldata.
func flattenCalls(calls []starknet.Call) []*big.Int {
	out := []*big.Int{big.NewInt(int64(len(calls)))}
	for _, c := range calls {
		out = append(out, c.To, c.Selector, big.NewInt(int64(len(c.Calldata))))
		out = append(out, c.Calldata...)
	}
	return out
}
