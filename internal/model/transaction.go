// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// TransactionStatus tracks a transaction through the classification lifecycle.
type TransactionStatus string

// Transaction lifecycle states.
const (
	StatusUnclassified TransactionStatus = "UNCLASSIFIED"
	StatusClassifying  TransactionStatus = "CLASSIFYING"
	StatusClassified   TransactionStatus = "CLASSIFIED"
	StatusApproved     TransactionStatus = "APPROVED"
)

// Transaction represents a single imported financial transaction.
// Ingestion and deduplication happen upstream; the pipeline only reads
// transactions and mutates their status.
type Transaction struct {
	Date         time.Time
	Description  string // Raw transaction description
	Counterparty string // Cleaned merchant/counterparty name
	Status       TransactionStatus
	ID           int64
	Amount       float64
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9 ]+`)

// NormalizedDescription returns the description uppercased with punctuation
// stripped and whitespace collapsed. All matchers operate on this form so
// that near-identical bank strings compare equal.
func (t *Transaction) NormalizedDescription() string {
	text := strings.ToUpper(t.Description)
	text = nonAlnum.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// SearchText combines the normalized description and counterparty for rule
// and similarity matching.
func (t *Transaction) SearchText() string {
	parts := []string{t.NormalizedDescription()}
	if cp := strings.TrimSpace(strings.ToUpper(t.Counterparty)); cp != "" {
		parts = append(parts, cp)
	}
	return strings.Join(parts, " ")
}

// Fingerprint produces a stable cache key from normalized content. Amounts
// are bucketed to the nearest power of ten so that small variations in
// recurring charges still hit the cache.
func (t *Transaction) Fingerprint() string {
	bucket := 0
	if abs := math.Abs(t.Amount); abs >= 1 {
		bucket = int(math.Floor(math.Log10(abs)))
	}
	data := fmt.Sprintf("%s|%d|%s",
		t.NormalizedDescription(),
		bucket,
		strings.ToUpper(strings.TrimSpace(t.Counterparty)))
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)[:16]
}
