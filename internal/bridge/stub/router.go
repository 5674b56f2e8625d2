// Package stub provides an in-memory bridge router for tests.
package stub

import (
	"context"
	"math/big"
	"sync"

	"stark-wallet/internal/bridge"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

// Router returns configurable bounds and records built calls.
type Router struct {
	mu sync.Mutex

	// Min and Max default to 1 and 1e30 when nil.
	Min *big.Int
	Max *big.Int

	// Status is returned by GetTransactionStatus.
	Status string

	ApproveCalls  []starknet.Call
	TransferCalls []starknet.Call
	StatusQueries []string
}

var _ bridge.Router = (*Router)(nil)

func (r *Router) bounds() bridge.Bounds {
	min := r.Min
	if min == nil {
		min = big.NewInt(1)
	}
	max := r.Max
	if max == nil {
		max = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	}
	return bridge.Bounds{Min: min, Max: max}
}

func (r *Router) GetSendBounds(ctx context.Context, pair bridge.TradePair) (bridge.Bounds, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bounds(), nil
}

func (r *Router) Simulate(ctx context.Context, pair bridge.TradePair, amount *big.Int) (bridge.Simulation, error) {
	return bridge.Simulation{
		SendAmount:    new(big.Int).Set(amount),
		ReceiveAmount: new(big.Int).Set(amount),
	}, nil
}

func (r *Router) CreateApprove(ctx context.Context, pair bridge.TradePair, owner string, amount *big.Int) (starknet.Call, error) {
	call := starknet.Call{
		To:       big.NewInt(0xA11),
		Selector: starkcurve.Selector("approve"),
		Calldata: []*big.Int{new(big.Int).Set(amount), big.NewInt(0)},
	}
	r.mu.Lock()
	r.ApproveCalls = append(r.ApproveCalls, call)
	r.mu.Unlock()
	return call, nil
}

func (r *Router) CreateTransaction(ctx context.Context, pair bridge.TradePair, from, to string, amount *big.Int) (starknet.Call, error) {
	call := starknet.Call{
		To:       big.NewInt(0xB12),
		Selector: starkcurve.Selector("transfer"),
		Calldata: []*big.Int{new(big.Int).Set(amount), big.NewInt(0)},
	}
	r.mu.Lock()
	r.TransferCalls = append(r.TransferCalls, call)
	r.mu.Unlock()
	return call, nil
}

func (r *Router) GetTransactionStatus(ctx context.Context, txHash, chain string) (string, error) {
	r.mu.Lock()
	r.StatusQueries = append(r.StatusQueries, txHash)
	status := r.Status
	r.mu.Unlock()
	if status == "" {
		status = "success"
	}
	return status, nil
}
