// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/halcyonlabs/saffron/internal/model"
)

// LabeledExample is a previously classified transaction used as similarity
// corpus by the embedding matcher.
type LabeledExample struct {
	Description string
	AccountName string
	AccountID   int64
}

// MethodStats aggregates per-method prediction outcomes for accuracy
// reporting.
type MethodStats struct {
	Method        model.Method
	Predictions   int
	Approvals     int
	Correct       int
	ConfidenceSum float64
}

// Store defines the contract for our persistence layer.
type Store interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status model.TransactionStatus) error
	GetLabeledExamples(ctx context.Context) ([]LabeledExample, error)

	// Chart of accounts operations
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByCode(ctx context.Context, code string) (*model.Account, error)
	FindAccountByName(ctx context.Context, name string) (*model.Account, error)

	// Rule operations
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	GetRules(ctx context.Context, limit int, activeOnly bool) ([]model.Rule, error)
	CreateRule(ctx context.Context, rule *model.Rule) error
	IncrementRuleMatchCount(ctx context.Context, ruleID int64) error
	IncrementRuleSuccessCount(ctx context.Context, ruleID int64) error

	// Vendor mapping operations
	GetVendorMapping(ctx context.Context, vendorName string) (*model.VendorMapping, error)
	SaveVendorMapping(ctx context.Context, mapping *model.VendorMapping) error
	IncrementVendorUseCount(ctx context.Context, vendorName string) error

	// Classification result operations
	GetResult(ctx context.Context, transactionID int64) (*model.Result, error)
	SaveResult(ctx context.Context, result *model.Result) error

	// Approval operations
	SaveApproval(ctx context.Context, record *model.ApprovalRecord) error
	GetApprovalsByTransaction(ctx context.Context, transactionID int64) ([]model.ApprovalRecord, error)

	// Accuracy tracking
	RecordPrediction(ctx context.Context, method model.Method, confidence float64) error
	RecordApproval(ctx context.Context, method model.Method, correct bool) error
	GetMethodStats(ctx context.Context) ([]MethodStats, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
