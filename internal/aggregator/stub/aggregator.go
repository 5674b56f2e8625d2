// Package stub provides an in-memory aggregator for tests.
package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"stark-wallet/internal/aggregator"
	"stark-wallet/internal/domain"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
)

// Aggregator implements aggregator.Aggregator with canned quotes. Each
// FetchQuotes call consumes the configured BuyAmount afresh, so tests can
// prove no caching happens between calls.
type Aggregator struct {
	mu sync.Mutex

	// BuyAmount is the buy side returned on the next fetch.
	BuyAmount *big.Int

	// FailFetch makes FetchQuotes return an error.
	FailFetch bool

	// FailExecute makes ExecuteSwap return ErrQuoteExpired.
	FailExecute bool

	// Recorded activity.
	FetchCount    int
	ExecutedQuote *domain.Quote

	quoteCounter int
}

// New creates a stub aggregator quoting the given buy amount.
func New(buyAmount *big.Int) *Aggregator {
	return &Aggregator{BuyAmount: buyAmount}
}

var _ aggregator.Aggregator = (*Aggregator)(nil)

// SetBuyAmount changes the quoted buy amount for subsequent fetches.
func (a *Aggregator) SetBuyAmount(v *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.BuyAmount = v
}

// FetchQuotes returns a single quote with the configured buy amount.
func (a *Aggregator) FetchQuotes(_ context.Context, req aggregator.QuoteRequest) ([]domain.Quote, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.FailFetch {
		return nil, fmt.Errorf("aggregator unavailable")
	}
	a.FetchCount++
	a.quoteCounter++
	return []domain.Quote{{
		QuoteID:    fmt.Sprintf("stub-quote-%d", a.quoteCounter),
		SellToken:  req.SellToken,
		BuyToken:   req.BuyToken,
		SellAmount: new(big.Int).Set(req.SellAmount),
		BuyAmount:  new(big.Int).Set(a.BuyAmount),
		Routes:     []string{"stub-amm"},
	}}, nil
}

// ExecuteSwap records the quote and submits a single swap call through the
// taker so submission counting still works.
func (a *Aggregator) ExecuteSwap(ctx context.Context, taker aggregator.Executor, quote domain.Quote) (string, error) {
	a.mu.Lock()
	if a.FailExecute {
		a.mu.Unlock()
		return "", fmt.Errorf("%w: quote %s", aggregator.ErrQuoteExpired, quote.QuoteID)
	}
	q := quote
	a.ExecutedQuote = &q
	a.mu.Unlock()

	sellToken, err := starkcurve.FromHex(quote.SellToken)
	if err != nil {
		return "", err
	}
	call := starknet.Call{
		To:       sellToken,
		Selector: starkcurve.Selector("swap"),
		Calldata: []*big.Int{quote.SellAmount, quote.BuyAmount},
	}
	return taker.Execute(ctx, []starknet.Call{call}, nil)
}
