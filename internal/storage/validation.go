package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/halcyonlabs/saffron/internal/model"
)

// Validation errors returned before any query runs.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("value cannot be empty")
	ErrInvalidID     = errors.New("id must be positive")
	ErrNilValue      = errors.New("value cannot be nil")
	ErrBadConfidence = errors.New("confidence must be between 0 and 1")
	ErrUnknownMethod = errors.New("unknown classification method")
	ErrUnknownStatus = errors.New("unknown transaction status")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, name)
	}
	return nil
}

func validateID(id int64, name string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, name)
	}
	return nil
}

func validateConfidence(confidence float64) error {
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: got %f", ErrBadConfidence, confidence)
	}
	return nil
}

func validateStatus(status model.TransactionStatus) error {
	switch status {
	case model.StatusUnclassified, model.StatusClassifying,
		model.StatusClassified, model.StatusApproved:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
}

func validateMethod(method model.Method) error {
	switch method {
	case model.MethodVendorMapping, model.MethodRegexRule, model.MethodEmbedding,
		model.MethodML, model.MethodLLM, model.MethodHybrid, model.MethodFallback:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilValue)
	}
	if err := validateString(rule.Pattern, "rule.Pattern"); err != nil {
		return err
	}
	if err := validateID(rule.AccountID, "rule.AccountID"); err != nil {
		return err
	}
	return validateConfidence(rule.Confidence)
}

func validateResult(result *model.Result) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilValue)
	}
	if err := validateID(result.TransactionID, "result.TransactionID"); err != nil {
		return err
	}
	if err := validateMethod(result.Method); err != nil {
		return err
	}
	return validateConfidence(result.Confidence)
}

func validateMapping(mapping *model.VendorMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilValue)
	}
	if err := validateString(mapping.VendorName, "mapping.VendorName"); err != nil {
		return err
	}
	if err := validateID(mapping.AccountID, "mapping.AccountID"); err != nil {
		return err
	}
	return validateConfidence(mapping.Confidence)
}

func validateApproval(record *model.ApprovalRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilValue)
	}
	if err := validateString(record.ID, "record.ID"); err != nil {
		return err
	}
	if err := validateID(record.TransactionID, "record.TransactionID"); err != nil {
		return err
	}
	return validateString(record.ApprovedBy, "record.ApprovedBy")
}
