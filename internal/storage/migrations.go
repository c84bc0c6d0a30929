package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					counterparty TEXT,
					amount REAL NOT NULL,
					status TEXT NOT NULL DEFAULT 'UNCLASSIFIED',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,
				`CREATE INDEX idx_transactions_counterparty ON transactions(counterparty)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					code TEXT UNIQUE NOT NULL,
					name TEXT NOT NULL,
					type TEXT NOT NULL,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounts_name ON accounts(name)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					pattern TEXT NOT NULL,
					is_regex BOOLEAN DEFAULT 1,
					account_id INTEGER NOT NULL,
					confidence REAL NOT NULL DEFAULT 0.8,
					priority INTEGER NOT NULL DEFAULT 100,
					is_active BOOLEAN DEFAULT 1,
					match_count INTEGER DEFAULT 0,
					success_count INTEGER DEFAULT 0,
					source TEXT DEFAULT 'system',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,
				`CREATE INDEX idx_rules_active ON rules(is_active)`,

				`CREATE TABLE IF NOT EXISTS vendor_mappings (
					vendor_name TEXT PRIMARY KEY,
					account_id INTEGER NOT NULL,
					confidence REAL NOT NULL DEFAULT 0.95,
					use_count INTEGER DEFAULT 0,
					last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,

				`CREATE TABLE IF NOT EXISTS results (
					transaction_id INTEGER PRIMARY KEY,
					account_id INTEGER,
					account_name TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					method TEXT NOT NULL,
					rule_id INTEGER,
					similarity REAL,
					reason TEXT,
					classified_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_results_method ON results(method)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add approvals audit trail and per-method stats",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS approvals (
					id TEXT PRIMARY KEY,
					transaction_id INTEGER NOT NULL,
					approved_by TEXT NOT NULL,
					rule_created BOOLEAN DEFAULT 0,
					vendor_mapping_updated BOOLEAN DEFAULT 0,
					notes TEXT,
					approved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_approvals_transaction_id ON approvals(transaction_id)`,

				`CREATE TABLE IF NOT EXISTS method_stats (
					method TEXT PRIMARY KEY,
					predictions INTEGER DEFAULT 0,
					approvals INTEGER DEFAULT 0,
					correct INTEGER DEFAULT 0,
					confidence_sum REAL DEFAULT 0
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Seed default chart of accounts",
		Up: func(tx *sql.Tx) error {
			accounts := []struct {
				code string
				name string
				typ  string
			}{
				{"4000", "Sales Income", "Income"},
				{"5000", "Office Expenses", "Expense"},
				{"5100", "Vehicle Expenses", "Expense"},
				{"5200", "Meals & Entertainment", "Expense"},
				{"5300", "Software Expenses", "Expense"},
				{"5400", "Travel Expenses", "Expense"},
				{"6000", "Uncategorized Expenses", "Expense"},
			}

			for _, acc := range accounts {
				if _, err := tx.Exec(`
					INSERT INTO accounts (code, name, type)
					SELECT ?, ?, ?
					WHERE NOT EXISTS (SELECT 1 FROM accounts WHERE code = ?)
				`, acc.code, acc.name, acc.typ, acc.code); err != nil {
					return fmt.Errorf("failed to seed account %s: %w", acc.code, err)
				}
			}

			slog.Info("Seeded default chart of accounts", "count", len(accounts))
			return nil
		},
	},
	{
		Version:     4,
		Description: "Seed default classification rules",
		Up: func(tx *sql.Tx) error {
			rules := []struct {
				name       string
				pattern    string
				code       string
				confidence float64
			}{
				{"Office Supplies", `(STAPLES|OFFICE DEPOT|AMAZON.*OFFICE|SUPPLIES)`, "5000", 0.95},
				{"Gas & Fuel", `(SHELL|EXXON|CHEVRON|BP|MOBIL|FUEL|GAS STATION)`, "5100", 0.90},
				{"Meals & Entertainment", `(RESTAURANT|STARBUCKS|MCDONALD|BURGER|PIZZA|COFFEE)`, "5200", 0.85},
				{"Software & Subscriptions", `(MICROSOFT|ADOBE|GOOGLE|SAAS|SOFTWARE|SUBSCRIPTION)`, "5300", 0.90},
				{"Travel", `(AIRLINE|HOTEL|UBER|LYFT|RENTAL CAR|AIRBNB)`, "5400", 0.90},
			}

			for _, rule := range rules {
				if _, err := tx.Exec(`
					INSERT INTO rules (name, pattern, is_regex, account_id, confidence, source)
					SELECT ?, ?, 1, id, ?, 'system' FROM accounts WHERE code = ?
				`, rule.name, rule.pattern, rule.confidence, rule.code); err != nil {
					return fmt.Errorf("failed to seed rule %s: %w", rule.name, err)
				}
			}

			slog.Info("Seeded default classification rules", "count", len(rules))
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
