package model

import "time"

// AccountType indicates the accounting treatment of an account.
type AccountType string

const (
	// AccountTypeExpense represents expense accounts.
	AccountTypeExpense AccountType = "Expense"
	// AccountTypeIncome represents income accounts.
	AccountTypeIncome AccountType = "Income"
	// AccountTypeAsset represents asset accounts.
	AccountTypeAsset AccountType = "Asset"
	// AccountTypeLiability represents liability accounts.
	AccountTypeLiability AccountType = "Liability"
)

// Account is a single entry in the chart of accounts. Accounts are immutable
// reference data as far as the pipeline is concerned.
type Account struct {
	CreatedAt time.Time
	Code      string
	Name      string
	Type      AccountType
	ID        int64
	IsActive  bool
}
