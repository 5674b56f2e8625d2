// Package deploy decides whether an account contract is live on chain and
// lazily deploys it exactly once before first use.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"stark-wallet/internal/account"
	"stark-wallet/internal/observability"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

// ErrDeploymentFailed is returned when a deployment transaction is rejected
// or reverted. Fatal for the current request; the dependent operation is
// aborted, never retried automatically.
var ErrDeploymentFailed = errors.New("account deployment failed")

// DefaultFeeMultiplier is the fixed safety multiplier applied to the
// estimated deployment fee. A tunable constant, not derived from network
// state.
const DefaultFeeMultiplier = 50

// Gatekeeper tracks deployment state per address. The state machine is
// one-way: Undeployed -> Deployed, terminal at Deployed.
type Gatekeeper struct {
	rpc            starknet.Client
	feeMultiplier  int64
	confirmTimeout time.Duration
	logger         zerolog.Logger

	// group collapses concurrent deployments of one address into a single
	// submission.
	group singleflight.Group

	mu       sync.RWMutex
	deployed map[string]bool
	failed   map[string]bool
}

// NewGatekeeper creates a gatekeeper.
func NewGatekeeper(rpc starknet.Client, feeMultiplier int64, confirmTimeout time.Duration, logger zerolog.Logger) *Gatekeeper {
	if feeMultiplier <= 0 {
		feeMultiplier = DefaultFeeMultiplier
	}
	return &Gatekeeper{
		rpc:            rpc,
		feeMultiplier:  feeMultiplier,
		confirmTimeout: confirmTimeout,
		logger:         logger.With().Str("component", "deploy").Logger(),
		deployed:       make(map[string]bool),
		failed:         make(map[string]bool),
	}
}

// IsDeployed queries chain state for the address. A "contract not found"
// response means undeployed, not an error.
func (g *Gatekeeper) IsDeployed(ctx context.Context, address *big.Int) (bool, error) {
	_, err := g.rpc.GetClassHashAt(ctx, address)
	if errors.Is(err, starknet.ErrContractNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query class hash: %w", err)
	}
	return true, nil
}

// DeployIfNeeded ensures the account's address is deployed, submitting the
// deployment transaction at most once even under concurrent calls for the
// same address.
func (g *Gatekeeper) DeployIfNeeded(ctx context.Context, acct *account.Account) error {
	addr := starkcurve.ToHex(acct.Address())

	g.mu.RLock()
	done := g.deployed[addr]
	g.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := g.group.Do(addr, func() (interface{}, error) {
		return nil, g.deploy(ctx, acct, addr)
	})
	return err
}

func (g *Gatekeeper) deploy(ctx context.Context, acct *account.Account, addr string) error {
	live, err := g.IsDeployed(ctx, acct.Address())
	if err != nil {
		return err
	}
	if live {
		g.markDeployed(addr)
		return nil
	}

	g.logger.Info().Str("address", addr).Msg("deploying account")

	g.mu.Lock()
	if g.failed[addr] {
		observability.RecordDeploymentRetry()
	}
	g.mu.Unlock()

	txHash, err := acct.DeployAccount(ctx, g.feeMultiplier)
	if err != nil {
		g.markFailed(addr)
		return fmt.Errorf("%w: address %s: %v", ErrDeploymentFailed, addr, err)
	}

	receipt, err := g.rpc.WaitForTransaction(ctx, txHash, g.confirmTimeout)
	if err != nil {
		g.markFailed(addr)
		return fmt.Errorf("%w: address %s tx %s: %v", ErrDeploymentFailed, addr, txHash, err)
	}
	if !receipt.Succeeded() {
		g.logger.Error().
			Str("address", addr).
			Str("tx", txHash).
			Str("status", receipt.ExecutionStatus).
			Str("reason", receipt.RevertReason).
			Msg("deployment rejected")
		g.markFailed(addr)
		return fmt.Errorf("%w: address %s tx %s: %s", ErrDeploymentFailed, addr, txHash, receipt.ExecutionStatus)
	}

	g.markDeployed(addr)
	observability.RecordAccountDeployed()
	g.logger.Info().Str("address", addr).Str("tx", txHash).Msg("account deployed")
	return nil
}

func (g *Gatekeeper) markDeployed(addr string) {
	g.mu.Lock()
	g.deployed[addr] = true
	delete(g.failed, addr)
	g.mu.Unlock()
}

func (g *Gatekeeper) markFailed(addr string) {
	g.mu.Lock()
	g.failed[addr] = true
	g.mu.Unlock()
}
