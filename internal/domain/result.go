package domain

// TxResult is the unified outcome of any executed operation. Transfer and
// swap always populate TransactionID; bridge populates Status from the
// receipt and TransactionID when the submission hash is available.
type TxResult struct {
	TransactionID string
	Status        string
}

// AuditRecord is an append-only trail entry for every executed operation.
// Amounts are integer base units rendered as decimal strings; plaintext key
// material never appears here.
type AuditRecord struct {
	Operation      string // wallet_created | deploy | transfer | swap | bridge | upgrade
	ExternalUserID string
	Address        string
	Asset          string // primary asset symbol or token address
	CounterAsset   string // buy side for swaps, empty otherwise
	Amount         string // base units
	TransactionID  string
	Status         string
	Timestamp      int64 // Unix timestamp in milliseconds
}
