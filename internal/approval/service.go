// Package approval records human classification decisions and feeds them
// back into the rule store and accuracy tracking.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
	"github.com/halcyonlabs/saffron/internal/service"
)

// Rules learned from approvals rank below seeded and manual rules.
const (
	learnedRuleConfidence = 0.8
	learnedRulePriority   = 200
	maxKeywords           = 3
)

// Request carries one human approval decision.
type Request struct {
	TransactionID       int64
	ApprovedBy          string
	Notes               string
	CreateRule          bool
	UpdateVendorMapping bool
}

// Response reports what the approval actually changed.
type Response struct {
	Message              string
	Success              bool
	RuleCreated          bool
	VendorMappingUpdated bool
}

// Service applies approval decisions: status transition, optional rule
// learning, vendor mapping upserts, audit records, and accuracy updates.
type Service struct {
	store  service.Store
	logger *slog.Logger
}

// NewService creates an approval service.
func NewService(store service.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Approve marks the transaction approved and applies the requested feedback.
// A transaction with no prior classification result is accepted and treated
// as a direct manual classification.
func (s *Service) Approve(ctx context.Context, req Request) (*Response, error) {
	txn, err := s.store.GetTransactionByID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	result, err := s.store.GetResult(ctx, req.TransactionID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if err := s.store.UpdateTransactionStatus(ctx, req.TransactionID, model.StatusApproved); err != nil {
		return nil, err
	}

	resp := &Response{Success: true, Message: "transaction approved"}

	if req.CreateRule && result != nil {
		created, ruleErr := s.learnRule(ctx, txn, result)
		if ruleErr != nil {
			return nil, ruleErr
		}
		resp.RuleCreated = created
	}

	if req.UpdateVendorMapping && result != nil && txn.Counterparty != "" {
		if err := s.store.SaveVendorMapping(ctx, &model.VendorMapping{
			VendorName:  txn.Counterparty,
			AccountID:   result.AccountID,
			Confidence:  0.95,
			LastUpdated: time.Now(),
		}); err != nil {
			return nil, fmt.Errorf("failed to save vendor mapping: %w", err)
		}
		resp.VendorMappingUpdated = true
	}

	record := &model.ApprovalRecord{
		ID:                   uuid.NewString(),
		TransactionID:        req.TransactionID,
		ApprovedBy:           req.ApprovedBy,
		Notes:                req.Notes,
		RuleCreated:          resp.RuleCreated,
		VendorMappingUpdated: resp.VendorMappingUpdated,
		ApprovedAt:           time.Now(),
	}
	if err := s.store.SaveApproval(ctx, record); err != nil {
		return nil, err
	}

	if result != nil {
		s.trackOutcome(ctx, result)
	}

	s.logger.Info("transaction approved",
		"transaction_id", req.TransactionID,
		"approved_by", req.ApprovedBy,
		"rule_created", resp.RuleCreated,
		"vendor_mapping_updated", resp.VendorMappingUpdated)

	return resp, nil
}

// learnRule derives a keyword rule from the transaction and inserts it.
// An equivalent active rule makes this a no-op reported as success.
func (s *Service) learnRule(ctx context.Context, txn *model.Transaction, result *model.Result) (bool, error) {
	keywords := ExtractKeywords(txn.NormalizedDescription(), txn.Counterparty)
	if len(keywords) == 0 {
		return false, nil
	}

	rule := &model.Rule{
		Name:       fmt.Sprintf("Auto-learned: %s", result.AccountName),
		Pattern:    fmt.Sprintf("(%s)", strings.Join(keywords, "|")),
		IsRegex:    true,
		AccountID:  result.AccountID,
		Confidence: learnedRuleConfidence,
		Priority:   learnedRulePriority,
		Source:     model.RuleSourceApproval,
		IsActive:   true,
	}

	err := s.store.CreateRule(ctx, rule)
	if errors.Is(err, common.ErrDuplicateRule) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create learned rule: %w", err)
	}
	return true, nil
}

// trackOutcome records whether the automatic prediction survived review.
// Approval without modification means the prediction was correct. Failures
// are logged, not fatal.
func (s *Service) trackOutcome(ctx context.Context, result *model.Result) {
	if err := s.store.RecordApproval(ctx, result.Method, true); err != nil {
		s.logger.Warn("failed to record approval outcome",
			"method", result.Method, "error", err)
	}

	if result.Method == model.MethodRegexRule && result.RuleID != 0 {
		if err := s.store.IncrementRuleSuccessCount(ctx, result.RuleID); err != nil {
			s.logger.Warn("failed to increment rule success count",
				"rule_id", result.RuleID, "error", err)
		}
	}
}

var keywordPattern = regexp.MustCompile(`\b[A-Z0-9]{3,}\b`)

// Common English stopwords plus transaction boilerplate that carries no
// vendor signal.
var (
	stopwords = map[string]bool{
		"THE": true, "AND": true, "FOR": true, "BUT": true, "WITH": true,
	}
	transactionNoise = map[string]bool{
		"PURCHASE": true, "PAYMENT": true, "DEBIT": true,
		"CREDIT": true, "CARD": true, "TRANSACTION": true,
	}
)

// ExtractKeywords pulls the most distinctive tokens from a transaction for
// rule learning: uppercase alphanumeric runs of 3+ characters, with
// stopwords and transaction boilerplate removed, capped at maxKeywords in
// order of appearance.
func ExtractKeywords(description, counterparty string) []string {
	text := strings.ToUpper(description + " " + counterparty)
	words := keywordPattern.FindAllString(text, -1)

	keywords := make([]string, 0, maxKeywords)
	seen := make(map[string]bool)
	for _, word := range words {
		if stopwords[word] || transactionNoise[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
