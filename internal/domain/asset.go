package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAsset is returned when a symbol is not in the registry.
var ErrUnknownAsset = errors.New("unknown asset")

// Asset describes a token contract and its fixed decimal precision.
type Asset struct {
	Symbol       string
	Name         string
	Decimals     int32
	TokenAddress string
}

// AssetRegistry maps token symbols to asset metadata. The registry is
// read-only after construction, so lookups need no locking.
type AssetRegistry struct {
	bySymbol map[string]Asset
}

// NewAssetRegistry builds a registry from the given assets.
func NewAssetRegistry(assets []Asset) *AssetRegistry {
	r := &AssetRegistry{bySymbol: make(map[string]Asset, len(assets))}
	for _, a := range assets {
		r.bySymbol[strings.ToUpper(a.Symbol)] = a
	}
	return r
}

// Get resolves a symbol. Returns ErrUnknownAsset if the symbol is not known.
func (r *AssetRegistry) Get(symbol string) (Asset, error) {
	a, ok := r.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return a, nil
}

// DefaultAssets returns the built-in token set.
func DefaultAssets() []Asset {
	return []Asset{
		{
			Symbol:       "ETH",
			Name:         "Ethereum",
			Decimals:     18,
			TokenAddress: "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
		},
		{
			Symbol:       "STRK",
			Name:         "Stark",
			Decimals:     18,
			TokenAddress: "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d",
		},
		{
			Symbol:       "USDC",
			Name:         "USD Coin",
			Decimals:     6,
			TokenAddress: "0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8",
		},
	}
}
