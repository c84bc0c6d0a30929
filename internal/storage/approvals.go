package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/halcyonlabs/saffron/internal/model"
)

// SaveApproval appends an approval record to the audit trail.
func (s *SQLiteStore) SaveApproval(ctx context.Context, record *model.ApprovalRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateApproval(record); err != nil {
		return err
	}

	if record.ApprovedAt.IsZero() {
		record.ApprovedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals (id, transaction_id, approved_by, rule_created,
			vendor_mapping_updated, notes, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.TransactionID, record.ApprovedBy, record.RuleCreated,
		record.VendorMappingUpdated, record.Notes, record.ApprovedAt)
	if err != nil {
		return fmt.Errorf("failed to save approval: %w", err)
	}

	return nil
}

// GetApprovalsByTransaction retrieves the audit trail for a transaction,
// oldest first.
func (s *SQLiteStore) GetApprovalsByTransaction(ctx context.Context, transactionID int64) ([]model.ApprovalRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, approved_by, rule_created,
			vendor_mapping_updated, notes, approved_at
		FROM approvals
		WHERE transaction_id = ?
		ORDER BY approved_at
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ApprovalRecord
	for rows.Next() {
		var record model.ApprovalRecord
		var notes sql.NullString
		if err := rows.Scan(&record.ID, &record.TransactionID, &record.ApprovedBy,
			&record.RuleCreated, &record.VendorMappingUpdated, &notes, &record.ApprovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		record.Notes = notes.String
		records = append(records, record)
	}

	return records, rows.Err()
}
