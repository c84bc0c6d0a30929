package model

import "time"

// RuleSource indicates how a classification rule was created.
type RuleSource string

const (
	// RuleSourceSystem indicates a rule seeded at setup.
	RuleSourceSystem RuleSource = "system"
	// RuleSourceUser indicates a rule created manually.
	RuleSourceUser RuleSource = "user"
	// RuleSourceApproval indicates a rule derived from an approval.
	RuleSourceApproval RuleSource = "approval"
)

// Rule maps a description pattern to a suggested account. Rules are never
// silently overwritten; updates happen through explicit storage calls.
type Rule struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string
	Pattern      string
	Source       RuleSource
	ID           int64
	AccountID    int64
	Confidence   float64
	Priority     int
	MatchCount   int
	SuccessCount int
	IsActive     bool
	IsRegex      bool
}

// AccuracyRate returns the observed success rate for the rule, or 0 when the
// rule has never matched.
func (r *Rule) AccuracyRate() float64 {
	if r.MatchCount == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.MatchCount)
}

// VendorMapping is a direct counterparty-name-to-account association, the
// highest-priority rule form. At most one active mapping exists per vendor
// name; a new mapping supersedes the old one.
type VendorMapping struct {
	LastUpdated time.Time
	VendorName  string
	AccountID   int64
	Confidence  float64
	UseCount    int
}
