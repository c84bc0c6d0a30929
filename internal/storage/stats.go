package storage

import (
	"context"
	"fmt"

	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// RecordPrediction counts an accepted pipeline prediction for a method.
func (s *SQLiteStore) RecordPrediction(ctx context.Context, method model.Method, confidence float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMethod(method); err != nil {
		return err
	}
	if err := validateConfidence(confidence); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO method_stats (method, predictions, confidence_sum)
		VALUES (?, 1, ?)
		ON CONFLICT(method) DO UPDATE SET
			predictions = predictions + 1,
			confidence_sum = confidence_sum + excluded.confidence_sum
	`, method, confidence)
	if err != nil {
		return fmt.Errorf("failed to record prediction: %w", err)
	}

	return nil
}

// RecordApproval counts a human review outcome for a method.
func (s *SQLiteStore) RecordApproval(ctx context.Context, method model.Method, correct bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMethod(method); err != nil {
		return err
	}

	correctDelta := 0
	if correct {
		correctDelta = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO method_stats (method, approvals, correct)
		VALUES (?, 1, ?)
		ON CONFLICT(method) DO UPDATE SET
			approvals = approvals + 1,
			correct = correct + excluded.correct
	`, method, correctDelta)
	if err != nil {
		return fmt.Errorf("failed to record approval: %w", err)
	}

	return nil
}

// GetMethodStats retrieves the per-method counters.
func (s *SQLiteStore) GetMethodStats(ctx context.Context) ([]service.MethodStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT method, predictions, approvals, correct, confidence_sum
		FROM method_stats
		ORDER BY method
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query method stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []service.MethodStats
	for rows.Next() {
		var st service.MethodStats
		if err := rows.Scan(&st.Method, &st.Predictions, &st.Approvals, &st.Correct, &st.ConfidenceSum); err != nil {
			return nil, fmt.Errorf("failed to scan method stats: %w", err)
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}
