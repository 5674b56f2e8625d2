package domain

// Wallet is a custodial wallet record.
// Corresponds to the wallets table in PostgreSQL.
type Wallet struct {
	Email               string // UNIQUE
	ExternalUserID      string // UNIQUE, id in the outside identity system
	PublicKey           string // hex-encoded field element
	EncryptedPrivateKey string // base64 AES-GCM ciphertext, never plaintext
	Address             string // derived account address, immutable
	CreatedAt           int64  // Unix timestamp in milliseconds
}
