package starknet

import "errors"

var (
	// ErrContractNotFound is returned when no contract exists at an
	// address. For account addresses this means "not yet deployed" and is
	// handled, not surfaced.
	ErrContractNotFound = errors.New("contract not found")

	// ErrTxnNotFound is returned while the node does not know a
	// transaction hash yet.
	ErrTxnNotFound = errors.New("transaction hash not found")

	// ErrTimeout is returned when a confirmation wait exceeds its bound.
	ErrTimeout = errors.New("confirmation wait timed out")
)

// Node error codes from the JSON-RPC spec.
const (
	codeContractNotFound = 20
	codeTxnNotFound      = 29
)
