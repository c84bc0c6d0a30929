package model

import "time"

// Method identifies which pipeline stage produced a classification result.
type Method string

// Classification method tags.
const (
	MethodVendorMapping Method = "vendor_mapping"
	MethodRegexRule     Method = "regex_rule"
	MethodEmbedding     Method = "embedding"
	MethodML            Method = "ml"
	MethodLLM           Method = "llm"
	MethodHybrid        Method = "hybrid"
	MethodFallback      Method = "fallback"
)

// FallbackConfidence is the fixed confidence attached to degraded results
// when no stage produced an accepted match.
const FallbackConfidence = 0.05

// StageResult is the candidate classification a single stage proposes for a
// transaction. A stage that cannot classify returns nil instead.
type StageResult struct {
	AccountName     string
	Method          Method
	Reason          string
	AccountID       int64
	RuleID          int64 // set only for rule-stage results
	Confidence      float64
	SimilarityScore float64 // set only for embedding-stage results
}

// Result is the persisted classification for a transaction. At most one
// current Result exists per transaction; replacing it requires an explicit
// force_reclassify.
type Result struct {
	ClassifiedAt    time.Time
	AccountName     string
	Method          Method
	Reason          string
	TransactionID   int64
	AccountID       int64
	RuleID          int64
	Confidence      float64
	SimilarityScore float64
}

// FallbackResult builds the degraded stage result used when a stage or the
// whole cascade comes up empty.
func FallbackResult(reason string) *StageResult {
	return &StageResult{
		Method:      MethodFallback,
		AccountName: "Uncategorized",
		Confidence:  FallbackConfidence,
		Reason:      reason,
	}
}
