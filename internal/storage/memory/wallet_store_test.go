package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/storage"
)

func TestWalletStore_InsertAndGet(t *testing.T) {
	store := NewWalletStore()
	ctx := context.Background()

	w := &domain.Wallet{
		Email:               "alice@example.com",
		ExternalUserID:      "user-001",
		PublicKey:           "0x3b1c",
		EncryptedPrivateKey: "qN1m2P3q4R5s6T7u8V9wAB==",
		Address:             "0x49d3",
		CreatedAt:           1700000000000,
	}

	err := store.Insert(ctx, w)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByExternalUserID(ctx, "user-001")
	if err != nil {
		t.Fatalf("GetByExternalUserID failed: %v", err)
	}
	if got.Email != w.Email {
		t.Errorf("Email mismatch: got %s, want %s", got.Email, w.Email)
	}
	if got.EncryptedPrivateKey != w.EncryptedPrivateKey {
		t.Errorf("EncryptedPrivateKey mismatch")
	}

	got, err = store.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ExternalUserID != w.ExternalUserID {
		t.Errorf("ExternalUserID mismatch: got %s, want %s", got.ExternalUserID, w.ExternalUserID)
	}
}

func TestWalletStore_DuplicateKey(t *testing.T) {
	store := NewWalletStore()
	ctx := context.Background()

	w := &domain.Wallet{Email: "bob@example.com", ExternalUserID: "user-002"}
	if err := store.Insert(ctx, w); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	// Same user id, different email
	err := store.Insert(ctx, &domain.Wallet{Email: "other@example.com", ExternalUserID: "user-002"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got %v, want ErrDuplicateKey", err)
	}

	// Same email, different user id
	err = store.Insert(ctx, &domain.Wallet{Email: "bob@example.com", ExternalUserID: "user-003"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got %v, want ErrDuplicateKey", err)
	}
}

func TestWalletStore_NotFound(t *testing.T) {
	store := NewWalletStore()
	ctx := context.Background()

	if _, err := store.GetByExternalUserID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := store.GetByEmail(ctx, "missing@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestWalletStore_InvalidInput(t *testing.T) {
	store := NewWalletStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil wallet: got %v", err)
	}
	if err := store.Insert(ctx, &domain.Wallet{ExternalUserID: "u"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing email: got %v", err)
	}
}

func TestWalletStore_CopiesOnReturn(t *testing.T) {
	store := NewWalletStore()
	ctx := context.Background()

	w := &domain.Wallet{Email: "d@example.com", ExternalUserID: "user-005", Address: "0x1"}
	if err := store.Insert(ctx, w); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByExternalUserID(ctx, "user-005")
	got.Address = "0xmutated"

	again, _ := store.GetByExternalUserID(ctx, "user-005")
	if again.Address != "0x1" {
		t.Errorf("store leaked internal pointer: address is %s", again.Address)
	}
}

func TestWalletStore_ConcurrentAccess(t *testing.T) {
	store := NewWalletStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w := &domain.Wallet{
				Email:          fmt.Sprintf("user%d@example.com", n),
				ExternalUserID: fmt.Sprintf("user-%d", n),
			}
			if err := store.Insert(ctx, w); err != nil {
				t.Errorf("Insert failed: %v", err)
			}
			if _, err := store.GetByExternalUserID(ctx, w.ExternalUserID); err != nil {
				t.Errorf("GetByExternalUserID failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}
