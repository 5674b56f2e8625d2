package domain

import "math/big"

// Quote is a third party's current exchange-rate offer for a token pair
// and amount. Amounts are in each token's integer base units. A quote is
// valid only for immediate execution and must never be cached across calls.
type Quote struct {
	QuoteID    string
	SellToken  string // token contract address
	BuyToken   string // token contract address
	SellAmount *big.Int
	BuyAmount  *big.Int
	Routes     []string // route names, best quote lists its path
}
