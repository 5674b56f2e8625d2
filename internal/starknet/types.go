// Package starknet provides the JSON-RPC 2.0 client for the chain node:
// contract reads, class hash lookups, transaction submission and
// confirmation waiting.
package starknet

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"stark-wallet/internal/starkcurve"
)

// Call is one contract invocation: target contract, entry point selector
// and calldata, all field elements.
type Call struct {
	To       *big.Int
	Selector *big.Int
	Calldata []*big.Int
}

// ParseCall builds a Call from wire strings. The entry point may be a
// selector in hex or an entry point name, as third-party services return
// either.
func ParseCall(contractAddress, entryPoint string, calldata []string) (Call, error) {
	to, err := starkcurve.FromHex(contractAddress)
	if err != nil {
		return Call{}, fmt.Errorf("parse contract address: %w", err)
	}

	var selector *big.Int
	if strings.HasPrefix(entryPoint, "0x") {
		if selector, err = starkcurve.FromHex(entryPoint); err != nil {
			return Call{}, fmt.Errorf("parse entry point: %w", err)
		}
	} else {
		selector = starkcurve.Selector(entryPoint)
	}

	data := make([]*big.Int, len(calldata))
	for i, d := range calldata {
		if data[i], err = starkcurve.FromHex(d); err != nil {
			return Call{}, fmt.Errorf("parse calldata[%d]: %w", i, err)
		}
	}
	return Call{To: to, Selector: selector, Calldata: data}, nil
}

// InvokeTxn is a version-1 invoke transaction ready for fee estimation or
// submission.
type InvokeTxn struct {
	SenderAddress *big.Int
	Calldata      []*big.Int
	MaxFee        *big.Int
	Nonce         *big.Int
	Signature     []*big.Int // empty for estimation
}

// DeployAccountTxn is a version-1 deploy-account transaction.
type DeployAccountTxn struct {
	ClassHash           *big.Int
	ContractAddressSalt *big.Int
	ConstructorCalldata []*big.Int
	MaxFee              *big.Int
	Nonce               *big.Int
	Signature           []*big.Int
}

// FeeEstimate is the node's fee estimation result.
type FeeEstimate struct {
	GasConsumed *big.Int
	GasPrice    *big.Int
	OverallFee  *big.Int
}

// Transaction finality and execution statuses.
const (
	StatusReceived       = "RECEIVED"
	StatusAcceptedOnL2   = "ACCEPTED_ON_L2"
	StatusAcceptedOnL1   = "ACCEPTED_ON_L1"
	StatusRejected       = "REJECTED"
	ExecutionSucceeded   = "SUCCEEDED"
	ExecutionReverted    = "REVERTED"
)

// Receipt is a transaction receipt.
type Receipt struct {
	TransactionHash string
	FinalityStatus  string
	ExecutionStatus string
	RevertReason    string
}

// Terminal reports whether the receipt will not change anymore.
func (r *Receipt) Terminal() bool {
	switch r.FinalityStatus {
	case StatusAcceptedOnL2, StatusAcceptedOnL1, StatusRejected:
		return true
	}
	return false
}

// Succeeded reports whether the transaction was accepted and executed.
func (r *Receipt) Succeeded() bool {
	return r.Terminal() && r.FinalityStatus != StatusRejected &&
		r.ExecutionStatus != ExecutionReverted
}

// Client is the chain API consumed by the rest of the service. HTTPClient
// implements it against a node; the stub package implements it for tests.
type Client interface {
	// ChainID returns the network's chain id as a field element.
	ChainID(ctx context.Context) (*big.Int, error)

	// GetClassHashAt returns the class hash deployed at address, or
	// ErrContractNotFound when the address has no contract.
	GetClassHashAt(ctx context.Context, address *big.Int) (*big.Int, error)

	// CallContract executes a read-only contract call at the latest block.
	CallContract(ctx context.Context, call Call) ([]*big.Int, error)

	// GetNonce returns the account's next nonce.
	GetNonce(ctx context.Context, address *big.Int) (*big.Int, error)

	// EstimateInvokeFee estimates the fee of an invoke transaction.
	EstimateInvokeFee(ctx context.Context, txn InvokeTxn) (*FeeEstimate, error)

	// EstimateDeployAccountFee estimates the fee of a deploy-account
	// transaction.
	EstimateDeployAccountFee(ctx context.Context, txn DeployAccountTxn) (*FeeEstimate, error)

	// AddInvokeTransaction submits a signed invoke transaction and returns
	// its hash. Never retried internally.
	AddInvokeTransaction(ctx context.Context, txn InvokeTxn) (string, error)

	// AddDeployAccountTransaction submits a signed deploy-account
	// transaction and returns (txHash, contractAddress). Never retried
	// internally.
	AddDeployAccountTransaction(ctx context.Context, txn DeployAccountTxn) (string, string, error)

	// GetTransactionReceipt fetches a receipt, or ErrTxnNotFound while the
	// transaction is unknown to the node.
	GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)

	// WaitForTransaction blocks until the transaction reaches a terminal
	// status or the timeout elapses (ErrTimeout). Abandoning the wait does
	// not retract the submission.
	WaitForTransaction(ctx context.Context, txHash string, timeout time.Duration) (*Receipt, error)
}
