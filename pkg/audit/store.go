package audit

import (
	"context"
	"fmt"

	"github.com/platinummonkey/contactbook/pkg/storage"
)

// Store persists request history
type Store interface {
	// Record appends a history record and sets its ID
	Record(ctx context.Context, record *HistoryRecord) error

	// ListByUser returns the account's records, oldest first
	ListByUser(ctx context.Context, userID int64) ([]*HistoryRecord, error)

	// PurgeByUser deletes every record owned by the account
	PurgeByUser(ctx context.Context, userID int64) (int64, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)
}

// DBStore implements Store over database/sql
type DBStore struct {
	db storage.DBTX
}

// NewDBStore creates a new database-backed history store
func NewDBStore(db storage.DBTX) *DBStore {
	return &DBStore{db: db}
}

// Record appends a history record
func (s *DBStore) Record(ctx context.Context, record *HistoryRecord) error {
	query := `
		INSERT INTO request_history (
			user_id, http_method, path, timestamp, query_string, body_content
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		record.UserID, record.HTTPMethod, record.Path,
		record.Timestamp, record.QueryString, record.BodyContent,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert request history: %w", err)
	}
	return nil
}

// ListByUser returns the account's records ordered by timestamp, then id
func (s *DBStore) ListByUser(ctx context.Context, userID int64) ([]*HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, http_method, path, timestamp, query_string, body_content
		FROM request_history
		WHERE user_id = $1
		ORDER BY timestamp ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query request history: %w", err)
	}
	defer rows.Close()

	records := make([]*HistoryRecord, 0)
	for rows.Next() {
		var record HistoryRecord
		err := rows.Scan(
			&record.ID, &record.UserID, &record.HTTPMethod, &record.Path,
			&record.Timestamp, &record.QueryString, &record.BodyContent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request history: %w", err)
		}
		record.Timestamp = record.Timestamp.UTC()
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request history: %w", err)
	}
	return records, nil
}

// PurgeByUser deletes the account's records and returns how many were removed
func (s *DBStore) PurgeByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM request_history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge request history: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the total number of history records
func (s *DBStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM request_history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count request history: %w", err)
	}
	return count, nil
}
