// Package bridge talks to the third-party cross-chain routing service:
// send bounds, amount simulation, raw approve/transfer calls and status
// lookups. The service does not bridge anything itself.
package bridge

import (
	"context"
	"errors"
	"math/big"

	"stark-wallet/internal/starknet"
)

// ErrBridge wraps router-side failures.
var ErrBridge = errors.New("bridge router error")

// TradePair identifies a bridge route.
type TradePair struct {
	SrcChain    string
	DstChain    string
	SrcToken    string // token symbol on source chain
	DstToken    string // token symbol on destination chain
}

// Bounds are the router's min/max sendable amounts, in base units.
type Bounds struct {
	Min *big.Int
	Max *big.Int
}

// Simulation is the expected outcome for a given amount.
type Simulation struct {
	SendAmount    *big.Int
	ReceiveAmount *big.Int
}

// Router is the client surface consumed by the transaction executor.
type Router interface {
	// GetSendBounds returns min/max sendable amounts for the pair.
	GetSendBounds(ctx context.Context, pair TradePair) (Bounds, error)

	// Simulate returns the effective send and expected receive amounts.
	Simulate(ctx context.Context, pair TradePair, amount *big.Int) (Simulation, error)

	// CreateApprove builds the token approval call for the router.
	CreateApprove(ctx context.Context, pair TradePair, owner string, amount *big.Int) (starknet.Call, error)

	// CreateTransaction builds the bridging transfer call.
	CreateTransaction(ctx context.Context, pair TradePair, from, to string, amount *big.Int) (starknet.Call, error)

	// GetTransactionStatus reports the bridge-side status of a submitted
	// transaction on the given chain.
	GetTransactionStatus(ctx context.Context, txHash, chain string) (string, error)
}
