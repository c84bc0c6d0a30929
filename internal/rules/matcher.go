// Package rules implements the deterministic rule stage: exact vendor-name
// lookup followed by prioritized regex evaluation.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// Matcher evaluates vendor mappings and regex rules against transactions.
type Matcher struct {
	store  service.Store
	logger *slog.Logger
}

// NewMatcher creates a rule matcher backed by the given store.
func NewMatcher(store service.Store, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{store: store, logger: logger}
}

// Name reports the method family this stage produces. Individual results
// carry the more specific vendor_mapping or regex_rule tag.
func (m *Matcher) Name() model.Method {
	return model.MethodRegexRule
}

// AttemptClassify tries the vendor mapping first, then active regex rules in
// deterministic order: confidence descending, priority ascending, id
// ascending. A nil result means no rule matched; that is not an error.
// Counters are not touched here; the orchestrator increments them only after
// accepting the result.
func (m *Matcher) AttemptClassify(ctx context.Context, txn model.Transaction) (*model.StageResult, error) {
	if result, err := m.matchVendor(ctx, txn); err != nil || result != nil {
		return result, err
	}
	return m.matchRules(ctx, txn)
}

func (m *Matcher) matchVendor(ctx context.Context, txn model.Transaction) (*model.StageResult, error) {
	if txn.Counterparty == "" {
		return nil, nil
	}

	mapping, err := m.store.GetVendorMapping(ctx, txn.Counterparty)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vendor lookup failed: %w", err)
	}

	account, err := m.store.GetAccountByID(ctx, mapping.AccountID)
	if err != nil {
		return nil, fmt.Errorf("vendor mapping references account %d: %w", mapping.AccountID, err)
	}

	m.logger.Debug("vendor mapping matched",
		"transaction_id", txn.ID,
		"vendor", mapping.VendorName,
		"account", account.Name)

	return &model.StageResult{
		Method:      model.MethodVendorMapping,
		AccountID:   account.ID,
		AccountName: account.Name,
		Confidence:  mapping.Confidence,
	}, nil
}

func (m *Matcher) matchRules(ctx context.Context, txn model.Transaction) (*model.StageResult, error) {
	activeRules, err := m.store.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	searchText := txn.SearchText()

	for i := range activeRules {
		rule := &activeRules[i]
		matched, err := m.ruleMatches(rule, searchText)
		if err != nil {
			// Invalid stored patterns are skipped, not fatal
			m.logger.Warn("skipping invalid rule pattern",
				"rule_id", rule.ID,
				"pattern", rule.Pattern,
				"error", err)
			continue
		}
		if !matched {
			continue
		}

		account, err := m.store.GetAccountByID(ctx, rule.AccountID)
		if err != nil {
			return nil, fmt.Errorf("rule %d references account %d: %w", rule.ID, rule.AccountID, err)
		}

		m.logger.Debug("regex rule matched",
			"transaction_id", txn.ID,
			"rule_id", rule.ID,
			"rule", rule.Name,
			"account", account.Name)

		return &model.StageResult{
			Method:      model.MethodRegexRule,
			AccountID:   account.ID,
			AccountName: account.Name,
			Confidence:  rule.Confidence,
			RuleID:      rule.ID,
		}, nil
	}

	return nil, nil
}

func (m *Matcher) ruleMatches(rule *model.Rule, searchText string) (bool, error) {
	if !rule.IsRegex {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(rule.Pattern) + `\b`)
		if err != nil {
			return false, err
		}
		return re.MatchString(searchText), nil
	}

	re, err := regexp.Compile(`(?i)` + rule.Pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(searchText), nil
}
