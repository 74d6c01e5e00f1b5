package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

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
				`CREATE TABLE IF NOT EXISTS receipts (
					id TEXT PRIMARY KEY,
					receipt_number TEXT UNIQUE,
					vendor_name TEXT NOT NULL,
					store_location TEXT NOT NULL DEFAULT '',
					transaction_date DATETIME,
					subtotal TEXT NOT NULL DEFAULT '0',
					tax TEXT NOT NULL DEFAULT '0',
					total TEXT NOT NULL DEFAULT '0',
					status TEXT NOT NULL DEFAULT 'pending',
					notes TEXT NOT NULL DEFAULT '',
					raw_document BLOB,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_receipts_date ON receipts(transaction_date)`,
				`CREATE INDEX idx_receipts_vendor ON receipts(vendor_name)`,

				`CREATE TABLE IF NOT EXISTS line_items (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					receipt_id TEXT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					name TEXT NOT NULL,
					unit_price TEXT NOT NULL DEFAULT '0',
					quantity INTEGER NOT NULL DEFAULT 1,
					item_code TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_line_items_receipt ON line_items(receipt_id)`,
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
		Description: "Track the subtotal last sent to the remote service",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE receipts ADD COLUMN last_sent_subtotal TEXT NOT NULL DEFAULT '0'`)
			if err != nil {
				return fmt.Errorf("failed to add last_sent_subtotal: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Retain the raw document's content type for re-processing",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE receipts ADD COLUMN content_type TEXT NOT NULL DEFAULT ''`)
			if err != nil {
				return fmt.Errorf("failed to add content_type: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}
			// PRAGMA does not support placeholders.
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
				return fmt.Errorf("failed to set schema version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, want %d", finalVersion, ExpectedSchemaVersion)
	}

	return nil
}
