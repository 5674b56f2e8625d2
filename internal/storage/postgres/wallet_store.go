package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/observability"
	"stark-wallet/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Insert adds a new wallet. Returns ErrDuplicateKey if the email or
// external user id already exists.
func (s *WalletStore) Insert(ctx context.Context, w *domain.Wallet) error {
	if w == nil || w.Email == "" || w.ExternalUserID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO wallets (
			email, external_user_id, public_key, encrypted_private_key, address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		w.Email,
		w.ExternalUserID,
		w.PublicKey,
		w.EncryptedPrivateKey,
		w.Address,
		w.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_wallet", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByExternalUserID retrieves a wallet by its external user id.
// Returns ErrNotFound if not exists.
func (s *WalletStore) GetByExternalUserID(ctx context.Context, externalUserID string) (*domain.Wallet, error) {
	query := `
		SELECT email, external_user_id, public_key, encrypted_private_key, address, created_at
		FROM wallets
		WHERE external_user_id = $1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, externalUserID)
	w, err := scanWallet(row)
	observability.RecordDBQuery("postgres", "get_wallet_by_user", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by external user id: %w", err)
	}
	return w, nil
}

// GetByEmail retrieves a wallet by its email. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByEmail(ctx context.Context, email string) (*domain.Wallet, error) {
	query := `
		SELECT email, external_user_id, public_key, encrypted_private_key, address, created_at
		FROM wallets
		WHERE email = $1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, email)
	w, err := scanWallet(row)
	observability.RecordDBQuery("postgres", "get_wallet_by_email", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by email: %w", err)
	}
	return w, nil
}

// scanWallet scans a single row into Wallet.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet

	err := row.Scan(
		&w.Email,
		&w.ExternalUserID,
		&w.PublicKey,
		&w.EncryptedPrivateKey,
		&w.Address,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &w, nil
}
