package domain

import "github.com/shopspring/decimal"

// IntentKind identifies a transaction intent variant.
type IntentKind string

const (
	IntentTransfer IntentKind = "Transfer"
	IntentSwap     IntentKind = "Swap"
	IntentBridge   IntentKind = "Bridge"
)

// TransactionIntent is an ephemeral, parsed request for one outbound
// value-moving operation. Intents are consumed exactly once and never
// persisted.
type TransactionIntent interface {
	Kind() IntentKind
}

// TransferIntent moves tokens to another address.
type TransferIntent struct {
	Destination string
	Amount      decimal.Decimal // human units
	Asset       string          // token symbol
}

func (TransferIntent) Kind() IntentKind { return IntentTransfer }

// SwapIntent exchanges one token for another.
type SwapIntent struct {
	SellAsset  string
	BuyAsset   string
	SellAmount decimal.Decimal // human units
}

func (SwapIntent) Kind() IntentKind { return IntentSwap }

// BridgeIntent moves an asset to another chain via a third-party router.
type BridgeIntent struct {
	Asset       string
	SourceChain string
	DestChain   string
}

func (BridgeIntent) Kind() IntentKind { return IntentBridge }
