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

const ruleColumns = `id, name, pattern, is_regex, account_id, confidence, priority,
	is_active, match_count, success_count, source, created_at, updated_at`

func scanRule(scanner interface{ Scan(...any) error }) (*model.Rule, error) {
	var rule model.Rule
	err := scanner.Scan(
		&rule.ID, &rule.Name, &rule.Pattern, &rule.IsRegex, &rule.AccountID,
		&rule.Confidence, &rule.Priority, &rule.IsActive, &rule.MatchCount,
		&rule.SuccessCount, &rule.Source, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	return &rule, nil
}

// GetActiveRules retrieves all active rules ordered for matching: confidence
// descending, then priority ascending, then id ascending. The ordering is the
// deterministic tie-break for rules with equal confidence.
func (s *SQLiteStore) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE is_active = 1
		ORDER BY confidence DESC, priority ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRules(rows)
}

// GetRules retrieves rules for reporting, most recently created first.
func (s *SQLiteStore) GetRules(ctx context.Context, limit int, activeOnly bool) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + ruleColumns + ` FROM rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRules(rows)
}

func collectRules(rows *sql.Rows) ([]model.Rule, error) {
	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// CreateRule inserts a new rule. Rules are never silently overwritten: if an
// active rule with the same pattern and target account already exists, the
// insert is rejected with common.ErrDuplicateRule. The whole check-and-insert
// runs in one database transaction so concurrent matchers see either the old
// or the new rule set, never a partial write.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM rules
			WHERE pattern = ? AND account_id = ? AND is_active = 1
		)
	`, rule.Pattern, rule.AccountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for equivalent rule: %w", err)
	}
	if exists {
		return fmt.Errorf("pattern %q: %w", rule.Pattern, common.ErrDuplicateRule)
	}

	if rule.Priority == 0 {
		rule.Priority = 100
	}
	if rule.Source == "" {
		rule.Source = model.RuleSourceUser
	}
	now := time.Now()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO rules (name, pattern, is_regex, account_id, confidence, priority,
			is_active, match_count, success_count, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
	`, rule.Name, rule.Pattern, rule.IsRegex, rule.AccountID, rule.Confidence,
		rule.Priority, rule.MatchCount, rule.SuccessCount, rule.Source, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule: %w", err)
	}

	rule.ID = id
	rule.IsActive = true
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// IncrementRuleMatchCount bumps the observed match counter for a rule.
// Called only after the orchestrator accepts the rule's result.
func (s *SQLiteStore) IncrementRuleMatchCount(ctx context.Context, ruleID int64) error {
	return s.incrementRuleCounter(ctx, ruleID, "match_count")
}

// IncrementRuleSuccessCount bumps the confirmed-correct counter for a rule.
func (s *SQLiteStore) IncrementRuleSuccessCount(ctx context.Context, ruleID int64) error {
	return s.incrementRuleCounter(ctx, ruleID, "success_count")
}

func (s *SQLiteStore) incrementRuleCounter(ctx context.Context, ruleID int64, column string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(ruleID, "ruleID"); err != nil {
		return err
	}

	// column is always one of the two constants above, never user input
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE rules SET %s = %s + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, column, column), ruleID)
	if err != nil {
		return fmt.Errorf("failed to increment rule %s: %w", column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", ruleID, common.ErrNotFound)
	}

	return nil
}
