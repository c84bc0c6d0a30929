package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/halcyonlabs/saffron/internal/common"
	"github.com/halcyonlabs/saffron/internal/model"
)

// vendorCacheTTL bounds how long the in-process mapping cache is trusted.
const vendorCacheTTL = 5 * time.Minute

func normalizeVendorName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// GetVendorMapping retrieves the active mapping for a vendor name.
func (s *SQLiteStore) GetVendorMapping(ctx context.Context, vendorName string) (*model.VendorMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(vendorName, "vendorName"); err != nil {
		return nil, err
	}

	name := normalizeVendorName(vendorName)

	if mapping := s.getCachedMapping(name); mapping != nil {
		return mapping, nil
	}

	var mapping model.VendorMapping
	err := s.db.QueryRowContext(ctx, `
		SELECT vendor_name, account_id, confidence, use_count, last_updated
		FROM vendor_mappings
		WHERE vendor_name = ?
	`, name).Scan(
		&mapping.VendorName,
		&mapping.AccountID,
		&mapping.Confidence,
		&mapping.UseCount,
		&mapping.LastUpdated,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vendor %q: %w", vendorName, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor mapping: %w", err)
	}

	s.cacheMapping(&mapping)
	return &mapping, nil
}

// SaveVendorMapping upserts a mapping. A new mapping for the same vendor name
// supersedes the old one in a single statement, so rule-matching readers see
// either the old or the new mapping, never a partial write.
func (s *SQLiteStore) SaveVendorMapping(ctx context.Context, mapping *model.VendorMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	mapping.VendorName = normalizeVendorName(mapping.VendorName)
	if mapping.LastUpdated.IsZero() {
		mapping.LastUpdated = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendor_mappings (vendor_name, account_id, confidence, use_count, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(vendor_name) DO UPDATE SET
			account_id = excluded.account_id,
			confidence = excluded.confidence,
			last_updated = excluded.last_updated
	`, mapping.VendorName, mapping.AccountID, mapping.Confidence, mapping.UseCount, mapping.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save vendor mapping: %w", err)
	}

	s.cacheMapping(mapping)
	return nil
}

// IncrementVendorUseCount bumps the use counter after the orchestrator
// accepts a vendor-mapping result.
func (s *SQLiteStore) IncrementVendorUseCount(ctx context.Context, vendorName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(vendorName, "vendorName"); err != nil {
		return err
	}

	name := normalizeVendorName(vendorName)

	result, err := s.db.ExecContext(ctx, `
		UPDATE vendor_mappings SET use_count = use_count + 1 WHERE vendor_name = ?
	`, name)
	if err != nil {
		return fmt.Errorf("failed to increment vendor use count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("vendor %q: %w", vendorName, common.ErrNotFound)
	}

	s.invalidateCachedMapping(name)
	return nil
}

func (s *SQLiteStore) getCachedMapping(name string) *model.VendorMapping {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.vendorCache[name]
}

func (s *SQLiteStore) cacheMapping(mapping *model.VendorMapping) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if time.Now().After(s.cacheExpiry) {
		s.vendorCache = make(map[string]*model.VendorMapping)
		s.cacheExpiry = time.Now().Add(vendorCacheTTL)
	}

	copied := *mapping
	s.vendorCache[mapping.VendorName] = &copied
}

func (s *SQLiteStore) invalidateCachedMapping(name string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	delete(s.vendorCache, name)
}
