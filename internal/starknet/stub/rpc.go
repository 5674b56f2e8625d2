// Package stub provides an in-memory starknet.Client for tests.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"stark-wallet/internal/account"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

// Client implements starknet.Client against in-memory state. Submissions
// confirm immediately; counters record every write for assertions.
type Client struct {
	mu sync.Mutex

	// ChainIDFelt is the chain id returned by ChainID.
	ChainIDFelt *big.Int

	// classHashes maps deployed address (hex) to class hash.
	classHashes map[string]*big.Int

	// CallResults maps selector (hex) to canned return data for
	// CallContract. Unset selectors return a single zero felt.
	CallResults map[string][]*big.Int

	// nonces tracks per-address nonces, advanced on each invoke.
	nonces map[string]*big.Int

	// EstimatedFee is returned by both fee estimation methods.
	EstimatedFee *big.Int

	// FailDeploy makes deploy submissions confirm as reverted.
	FailDeploy bool

	// Recorded submissions.
	DeploySubmissions atomic.Int64
	InvokeSubmissions atomic.Int64
	ReadCalls         atomic.Int64
	Invokes           []starknet.InvokeTxn
	Deploys           []starknet.DeployAccountTxn

	txCounter atomic.Int64
	receipts  map[string]*starknet.Receipt
}

// NewClient creates a stub with an empty chain state.
func NewClient() *Client {
	return &Client{
		ChainIDFelt:  starkcurve.EncodeShortString("SN_SEPOLIA"),
		classHashes:  make(map[string]*big.Int),
		CallResults:  make(map[string][]*big.Int),
		nonces:       make(map[string]*big.Int),
		EstimatedFee: big.NewInt(1_000_000_000),
		receipts:     make(map[string]*starknet.Receipt),
	}
}

var _ starknet.Client = (*Client)(nil)

// MarkDeployed records address as already holding classHash.
func (c *Client) MarkDeployed(address, classHash *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classHashes[starkcurve.ToHex(address)] = classHash
}

// ChainID returns the configured chain id.
func (c *Client) ChainID(_ context.Context) (*big.Int, error) {
	return c.ChainIDFelt, nil
}

// GetClassHashAt reports the class hash of a deployed address.
func (c *Client) GetClassHashAt(_ context.Context, address *big.Int) (*big.Int, error) {
	c.ReadCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	hash, ok := c.classHashes[starkcurve.ToHex(address)]
	if !ok {
		return nil, starknet.ErrContractNotFound
	}
	return hash, nil
}

// CallContract returns canned data keyed by selector.
func (c *Client) CallContract(_ context.Context, call starknet.Call) ([]*big.Int, error) {
	c.ReadCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.CallResults[starkcurve.ToHex(call.Selector)]; ok {
		return data, nil
	}
	return []*big.Int{big.NewInt(0)}, nil
}

// GetNonce returns the account's next nonce.
func (c *Client) GetNonce(_ context.Context, address *big.Int) (*big.Int, error) {
	c.ReadCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	key := starkcurve.ToHex(address)
	if _, ok := c.classHashes[key]; !ok {
		return nil, starknet.ErrContractNotFound
	}
	n, ok := c.nonces[key]
	if !ok {
		n = big.NewInt(0)
	}
	return new(big.Int).Set(n), nil
}

// EstimateInvokeFee returns the configured estimate.
func (c *Client) EstimateInvokeFee(_ context.Context, _ starknet.InvokeTxn) (*starknet.FeeEstimate, error) {
	c.ReadCalls.Add(1)
	return &starknet.FeeEstimate{OverallFee: new(big.Int).Set(c.EstimatedFee)}, nil
}

// EstimateDeployAccountFee returns the configured estimate.
func (c *Client) EstimateDeployAccountFee(_ context.Context, _ starknet.DeployAccountTxn) (*starknet.FeeEstimate, error) {
	c.ReadCalls.Add(1)
	return &starknet.FeeEstimate{OverallFee: new(big.Int).Set(c.EstimatedFee)}, nil
}

// AddInvokeTransaction records the submission and confirms it immediately.
func (c *Client) AddInvokeTransaction(_ context.Context, txn starknet.InvokeTxn) (string, error) {
	c.InvokeSubmissions.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Invokes = append(c.Invokes, txn)

	key := starkcurve.ToHex(txn.SenderAddress)
	n, ok := c.nonces[key]
	if !ok {
		n = big.NewInt(0)
	}
	c.nonces[key] = new(big.Int).Add(n, big.NewInt(1))

	txHash := fmt.Sprintf("0x%x", c.txCounter.Add(1)+0x1000)
	c.receipts[txHash] = &starknet.Receipt{
		TransactionHash: txHash,
		FinalityStatus:  starknet.StatusAcceptedOnL2,
		ExecutionStatus: starknet.ExecutionSucceeded,
	}
	return txHash, nil
}

// AddDeployAccountTransaction records the deployment and marks the address
// deployed unless FailDeploy is set.
func (c *Client) AddDeployAccountTransaction(_ context.Context, txn starknet.DeployAccountTxn) (string, string, error) {
	c.DeploySubmissions.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Deploys = append(c.Deploys, txn)

	txHash := fmt.Sprintf("0x%x", c.txCounter.Add(1)+0x2000)
	receipt := &starknet.Receipt{
		TransactionHash: txHash,
		FinalityStatus:  starknet.StatusAcceptedOnL2,
		ExecutionStatus: starknet.ExecutionSucceeded,
	}

	address := account.ComputeAddress(txn.ClassHash, txn.ContractAddressSalt, txn.ConstructorCalldata)
	if c.FailDeploy {
		receipt.ExecutionStatus = starknet.ExecutionReverted
		receipt.RevertReason = "deployment rejected"
	} else {
		c.classHashes[starkcurve.ToHex(address)] = txn.ClassHash
	}

	c.receipts[txHash] = receipt
	return txHash, starkcurve.ToHex(address), nil
}

// GetTransactionReceipt returns the recorded receipt.
func (c *Client) GetTransactionReceipt(_ context.Context, txHash string) (*starknet.Receipt, error) {
	c.ReadCalls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.receipts[txHash]
	if !ok {
		return nil, starknet.ErrTxnNotFound
	}
	return r, nil
}

// WaitForTransaction returns the recorded receipt without waiting.
func (c *Client) WaitForTransaction(ctx context.Context, txHash string, _ time.Duration) (*starknet.Receipt, error) {
	return c.GetTransactionReceipt(ctx, txHash)
}
