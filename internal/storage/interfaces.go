package storage

import (
	"context"

	"stark-wallet/internal/domain"
)

// WalletStore provides access to wallets storage.
type WalletStore interface {
	// Insert adds a new wallet. Returns ErrDuplicateKey if the email or
	// external user id already exists.
	Insert(ctx context.Context, w *domain.Wallet) error

	// GetByExternalUserID retrieves a wallet by its external user id.
	// Returns ErrNotFound if not exists.
	GetByExternalUserID(ctx context.Context, externalUserID string) (*domain.Wallet, error)

	// GetByEmail retrieves a wallet by its email. Returns ErrNotFound if not exists.
	GetByEmail(ctx context.Context, email string) (*domain.Wallet, error)
}

// AuditStore records completed wallet operations.
type AuditStore interface {
	// Append adds an audit record. Records are immutable once written.
	Append(ctx context.Context, r *domain.AuditRecord) error

	// GetByExternalUserID retrieves all records for a user, ordered by timestamp ASC.
	GetByExternalUserID(ctx context.Context, externalUserID string) ([]*domain.AuditRecord, error)
}
