package memory

import (
	"context"
	"sync"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/storage"
)

// AuditStore is an in-memory implementation of storage.AuditStore.
type AuditStore struct {
	mu      sync.RWMutex
	records []*domain.AuditRecord
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append adds an audit record.
func (s *AuditStore) Append(_ context.Context, r *domain.AuditRecord) error {
	if r == nil || r.ExternalUserID == "" || r.Operation == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.records = append(s.records, &recordCopy)
	return nil
}

// GetByExternalUserID retrieves all records for a user, ordered by timestamp ASC.
func (s *AuditStore) GetByExternalUserID(_ context.Context, externalUserID string) ([]*domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AuditRecord
	for _, r := range s.records {
		if r.ExternalUserID == externalUserID {
			recordCopy := *r
			out = append(out, &recordCopy)
		}
	}
	return out, nil
}

var _ storage.AuditStore = (*AuditStore)(nil)
