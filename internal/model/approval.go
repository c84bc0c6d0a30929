package model

import "time"

// ApprovalRecord is an append-only audit entry for a human approval decision.
type ApprovalRecord struct {
	ApprovedAt           time.Time
	ID                   string // uuid
	ApprovedBy           string
	Notes                string
	TransactionID        int64
	RuleCreated          bool
	VendorMappingUpdated bool
}
