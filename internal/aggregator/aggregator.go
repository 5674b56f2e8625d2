// Package aggregator talks to the external liquidity aggregator: quote
// fetching and swap execution against a fetched quote.
package aggregator

import (
	"context"
	"errors"
	"math/big"

	"stark-wallet/internal/account"
	"stark-wallet/internal/domain"
	"stark-wallet/internal/starknet"
)

var (
	// ErrQuoteExpired is returned when the aggregator refuses a quote at
	// execution time. The caller must restart the entire swap, fetch and
	// execute, never resume with the stale quote.
	ErrQuoteExpired = errors.New("quote expired")

	// ErrNoQuotes is returned when the aggregator has no route for the
	// pair and amount.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrAggregator wraps other aggregator-side failures.
	ErrAggregator = errors.New("aggregator error")
)

// QuoteRequest identifies the pair and sell amount, in base units.
type QuoteRequest struct {
	SellToken    string // token contract address
	BuyToken     string // token contract address
	SellAmount   *big.Int
	TakerAddress string
}

// Executor is the account capability ExecuteSwap needs; *account.Account
// satisfies it.
type Executor interface {
	Address() *big.Int
	Execute(ctx context.Context, calls []starknet.Call, opts *account.ExecuteOpts) (string, error)
}

// Aggregator is the client surface consumed by the transaction executor.
type Aggregator interface {
	// FetchQuotes returns current quotes for the pair, best first. Quotes
	// are never cached: every call is a fresh price.
	FetchQuotes(ctx context.Context, req QuoteRequest) ([]domain.Quote, error)

	// ExecuteSwap builds the swap calldata for the quote and submits it
	// through the taker's account, returning the transaction hash.
	ExecuteSwap(ctx context.Context, taker Executor, quote domain.Quote) (string, error)
}
