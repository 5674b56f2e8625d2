package clickhouse

import (
	"context"
	"fmt"
	"time"

	"stark-wallet/internal/domain"
	"stark-wallet/internal/observability"
	"stark-wallet/internal/storage"
)

// AuditStore implements storage.AuditStore using ClickHouse.
type AuditStore struct {
	conn *Conn
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(conn *Conn) *AuditStore {
	return &AuditStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Append adds an audit record.
func (s *AuditStore) Append(ctx context.Context, r *domain.AuditRecord) error {
	if r == nil || r.ExternalUserID == "" || r.Operation == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO audit_log (
			operation, external_user_id, address, asset, counter_asset,
			amount, transaction_id, status, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	err := s.conn.Exec(ctx, query,
		r.Operation, r.ExternalUserID, r.Address, r.Asset, r.CounterAsset,
		r.Amount, r.TransactionID, r.Status, uint64(r.Timestamp),
	)
	observability.RecordDBQuery("clickhouse", "append_audit", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// GetByExternalUserID retrieves all records for a user, ordered by timestamp ASC.
func (s *AuditStore) GetByExternalUserID(ctx context.Context, externalUserID string) ([]*domain.AuditRecord, error) {
	query := `
		SELECT operation, external_user_id, address, asset, counter_asset,
		       amount, transaction_id, status, timestamp_ms
		FROM audit_log
		WHERE external_user_id = ?
		ORDER BY timestamp_ms ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, externalUserID)
	observability.RecordDBQuery("clickhouse", "get_audit_by_user", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var r domain.AuditRecord
		var timestampMs uint64

		err := rows.Scan(
			&r.Operation, &r.ExternalUserID, &r.Address, &r.Asset, &r.CounterAsset,
			&r.Amount, &r.TransactionID, &r.Status, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}

		r.Timestamp = int64(timestampMs)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	return records, nil
}
