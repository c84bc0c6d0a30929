package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// SaveTransactions inserts a batch of transactions atomically. Existing ids
// are left untouched; ingestion owns deduplication.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (id, date, description, counterparty, amount, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		status := txn.Status
		if status == "" {
			status = model.StatusUnclassified
		}
		if err := validateStatus(status); err != nil {
			return err
		}

		var id any
		if txn.ID > 0 {
			id = txn.ID
		}
		if _, err := stmt.ExecContext(ctx, id, txn.Date, txn.Description, txn.Counterparty, txn.Amount, status); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	return tx.Commit()
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStore) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}

	var txn model.Transaction
	var counterparty sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, description, counterparty, amount, status
		FROM transactions
		WHERE id = ?
	`, id).Scan(&txn.ID, &txn.Date, &txn.Description, &counterparty, &txn.Amount, &txn.Status)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn.Counterparty = counterparty.String
	return &txn, nil
}

// UpdateTransactionStatus moves a transaction through its lifecycle.
func (s *SQLiteStore) UpdateTransactionStatus(ctx context.Context, id int64, status model.TransactionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	if err := validateStatus(status); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET status = ? WHERE id = ?
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// GetLabeledExamples returns the similarity corpus: every transaction that
// already carries a non-fallback classification result.
func (s *SQLiteStore) GetLabeledExamples(ctx context.Context) ([]service.LabeledExample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.description, r.account_name, COALESCE(r.account_id, 0)
		FROM transactions t
		JOIN results r ON r.transaction_id = t.id
		WHERE r.method != ? AND r.account_id IS NOT NULL
		ORDER BY t.id
	`, model.MethodFallback)
	if err != nil {
		return nil, fmt.Errorf("failed to query labeled examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var examples []service.LabeledExample
	for rows.Next() {
		var ex service.LabeledExample
		if err := rows.Scan(&ex.Description, &ex.AccountName, &ex.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan labeled example: %w", err)
		}
		examples = append(examples, ex)
	}

	return examples, rows.Err()
}
