package memory

import (
	"context"
	"sync"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/storage"
)

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu     sync.RWMutex
	byUser map[string]*domain.Wallet // keyed by external_user_id
	byMail map[string]*domain.Wallet // keyed by email (unique)
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		byUser: make(map[string]*domain.Wallet),
		byMail: make(map[string]*domain.Wallet),
	}
}

// Insert adds a new wallet. Returns ErrDuplicateKey if the email or
// external user id already exists.
func (s *WalletStore) Insert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Email == "" || w.ExternalUserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUser[w.ExternalUserID]; exists {
		return storage.ErrDuplicateKey
	}

	if _, exists := s.byMail[w.Email]; exists {
		return storage.ErrDuplicateKey
	}

	walletCopy := *w
	s.byUser[w.ExternalUserID] = &walletCopy
	s.byMail[w.Email] = &walletCopy
	return nil
}

// GetByExternalUserID retrieves a wallet by its external user id.
// Returns ErrNotFound if not exists.
func (s *WalletStore) GetByExternalUserID(_ context.Context, externalUserID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.byUser[externalUserID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	walletCopy := *w
	return &walletCopy, nil
}

// GetByEmail retrieves a wallet by its email. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByEmail(_ context.Context, email string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.byMail[email]
	if !exists {
		return nil, storage.ErrNotFound
	}

	walletCopy := *w
	return &walletCopy, nil
}

var _ storage.WalletStore = (*WalletStore)(nil)
