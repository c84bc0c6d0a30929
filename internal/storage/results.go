package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
)

// GetResult retrieves the current classification result for a transaction.
func (s *SQLiteStore) GetResult(ctx context.Context, transactionID int64) (*model.Result, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	var result model.Result
	var accountID, ruleID sql.NullInt64
	var similarity sql.NullFloat64
	var reason sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT transaction_id, account_id, account_name, confidence, method,
			rule_id, similarity, reason, classified_at
		FROM results
		WHERE transaction_id = ?
	`, transactionID).Scan(
		&result.TransactionID,
		&accountID,
		&result.AccountName,
		&result.Confidence,
		&result.Method,
		&ruleID,
		&similarity,
		&reason,
		&result.ClassifiedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result for transaction %d: %w", transactionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	result.AccountID = accountID.Int64
	result.RuleID = ruleID.Int64
	result.SimilarityScore = similarity.Float64
	result.Reason = reason.String
	return &result, nil
}

// SaveResult stores the current result for a transaction, replacing any prior
// result in a single atomic statement. Concurrent writers for the same
// transaction end up with exactly one of the two results, never a mixture.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *model.Result) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	if result.ClassifiedAt.IsZero() {
		result.ClassifiedAt = time.Now()
	}

	var accountID, ruleID any
	if result.AccountID > 0 {
		accountID = result.AccountID
	}
	if result.RuleID > 0 {
		ruleID = result.RuleID
	}
	var similarity any
	if result.SimilarityScore > 0 {
		similarity = result.SimilarityScore
	}
	var reason any
	if result.Reason != "" {
		reason = result.Reason
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO results (transaction_id, account_id, account_name,
			confidence, method, rule_id, similarity, reason, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.TransactionID, accountID, result.AccountName, result.Confidence,
		result.Method, ruleID, similarity, reason, result.ClassifiedAt)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}
