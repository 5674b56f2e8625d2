package account

import (
	"context"
	"fmt"
	"math/big"

	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

// Fee estimates get a headroom multiplier so a small congestion bump does
// not reject the transaction. Numerator/denominator to stay integral.
const (
	feeMarginNum = 3
	feeMarginDen = 2
)

// Account signs and submits transactions for one derived address. It holds
// the plaintext private key and therefore lives only for the duration of a
// single operation.
type Account struct {
	rpc       starknet.Client
	chainID   *big.Int
	classHash *big.Int
	priv      *big.Int
	pub       *big.Int
	address   *big.Int
}

// ExecuteOpts tunes transaction submission.
type ExecuteOpts struct {
	// MaxFee overrides fee estimation entirely when set.
	MaxFee *big.Int
	// FeeMultiplier scales the estimated fee instead of the default
	// margin. Used for deployment and upgrade, which apply the fixed
	// safety multiplier.
	FeeMultiplier int64
}

// New builds an account from a private key. The address is rederived from
// the key, never trusted from storage.
func New(rpc starknet.Client, chainID, classHash, priv *big.Int) (*Account, error) {
	pub, err := starkcurve.PublicKey(priv)
	if err != nil {
		return nil, err
	}
	return &Account{
		rpc:       rpc,
		chainID:   chainID,
		classHash: classHash,
		priv:      priv,
		pub:       pub,
		address:   DeriveAddress(pub, classHash),
	}, nil
}

// Address returns the account's contract address.
func (a *Account) Address() *big.Int { return new(big.Int).Set(a.address) }

// PublicKey returns the account's public key.
func (a *Account) PublicKey() *big.Int { return new(big.Int).Set(a.pub) }

// Execute signs and submits a multicall invoke transaction and returns the
// transaction hash. The submission itself is attempted exactly once.
func (a *Account) Execute(ctx context.Context, calls []starknet.Call, opts *ExecuteOpts) (string, error) {
	if len(calls) == 0 {
		return "", fmt.Errorf("no calls to execute")
	}

	nonce, err := a.rpc.GetNonce(ctx, a.address)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}

	calldata := flattenCalls(calls)

	maxFee, err := a.resolveMaxFee(ctx, calldata, nonce, opts)
	if err != nil {
		return "", err
	}

	hash := invokeV1Hash(a.address, calldata, maxFee, a.chainID, nonce)
	r, s, err := starkcurve.Sign(hash, a.priv)
	if err != nil {
		return "", fmt.Errorf("sign invoke: %w", err)
	}

	txHash, err := a.rpc.AddInvokeTransaction(ctx, starknet.InvokeTxn{
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        maxFee,
		Nonce:         nonce,
		Signature:     []*big.Int{r, s},
	})
	if err != nil {
		return "", fmt.Errorf("submit invoke: %w", err)
	}
	return txHash, nil
}

// resolveMaxFee picks the fee bound: explicit override, estimated with a
// custom multiplier, or estimated with the default margin.
func (a *Account) resolveMaxFee(ctx context.Context, calldata []*big.Int, nonce *big.Int, opts *ExecuteOpts) (*big.Int, error) {
	if opts != nil && opts.MaxFee != nil {
		return opts.MaxFee, nil
	}

	est, err := a.rpc.EstimateInvokeFee(ctx, starknet.InvokeTxn{
		SenderAddress: a.address,
		Calldata:      calldata,
		MaxFee:        big.NewInt(0),
		Nonce:         nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate fee: %w", err)
	}

	if opts != nil && opts.FeeMultiplier > 0 {
		return new(big.Int).Mul(est.OverallFee, big.NewInt(opts.FeeMultiplier)), nil
	}
	fee := new(big.Int).Mul(est.OverallFee, big.NewInt(feeMarginNum))
	return fee.Div(fee, big.NewInt(feeMarginDen)), nil
}

// DeployAccount signs and submits the one-time deploy-account transaction.
// The max fee applies feeMultiplier to the estimate, the fixed safety
// margin against underpriced-fee rejection under congestion.
func (a *Account) DeployAccount(ctx context.Context, feeMultiplier int64) (string, error) {
	salt := a.pub
	calldata := ConstructorCalldata(a.pub)
	nonce := big.NewInt(0)

	est, err := a.rpc.EstimateDeployAccountFee(ctx, starknet.DeployAccountTxn{
		ClassHash:           a.classHash,
		ContractAddressSalt: salt,
		ConstructorCalldata: calldata,
		MaxFee:              big.NewInt(0),
		Nonce:               nonce,
	})
	if err != nil {
		return "", fmt.Errorf("estimate deploy fee: %w", err)
	}
	maxFee := new(big.Int).Mul(est.OverallFee, big.NewInt(feeMultiplier))

	hash := deployAccountV1Hash(a.address, a.classHash, salt, calldata, maxFee, a.chainID, nonce)
	r, s, err := starkcurve.Sign(hash, a.priv)
	if err != nil {
		return "", fmt.Errorf("sign deploy: %w", err)
	}

	txHash, _, err := a.rpc.AddDeployAccountTransaction(ctx, starknet.DeployAccountTxn{
		ClassHash:           a.classHash,
		ContractAddressSalt: salt,
		ConstructorCalldata: calldata,
		MaxFee:              maxFee,
		Nonce:               nonce,
		Signature:           []*big.Int{r, s},
	})
	if err != nil {
		return "", fmt.Errorf("submit deploy: %w", err)
	}
	return txHash, nil
}
