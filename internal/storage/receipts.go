package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
)

const receiptColumns = `id, receipt_number, vendor_name, store_location, transaction_date,
	subtotal, tax, total, last_sent_subtotal, status, notes, raw_document, content_type,
	created_at, updated_at`

// CreateFromParse persists a brand-new record built from an extraction
// result. It never merges with an existing record.
func (s *SQLiteStore) CreateFromParse(ctx context.Context, parsed model.ParsedReceipt, raw *model.RawDocument) (*model.ReceiptRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	record := model.FromParse(parsed)
	if raw != nil {
		record.RawDocument = raw.Data
		record.ContentType = raw.ContentType
	}

	if err := s.Create(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create persists a fully-formed record, assigning ID and timestamps when
// the caller left them empty.
func (s *SQLiteStore) Create(ctx context.Context, record *model.ReceiptRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = model.StatusPending
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO receipts (`+receiptColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			nullableString(record.ReceiptNumber),
			record.VendorName,
			record.StoreLocation,
			nullableTime(record.TransactionDate),
			record.Subtotal.String(),
			record.Tax.String(),
			record.Total.String(),
			record.LastSentSubtotal.String(),
			string(record.Status),
			record.Notes,
			record.RawDocument,
			record.ContentType,
			record.CreatedAt,
			record.UpdatedAt,
		)
		if err != nil {
			return mapSQLiteError(err, "failed to insert receipt")
		}
		return insertLineItemsTx(ctx, tx, record.ID, record.LineItems)
	})
	if err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a single record with its owned line items.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.ReceiptRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, id)
	return s.scanRecord(ctx, row)
}

// GetByReceiptNumber looks a record up by its business key.
func (s *SQLiteStore) GetByReceiptNumber(ctx context.Context, receiptNumber string) (*model.ReceiptRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(receiptNumber, "receiptNumber"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE receipt_number = ?`, receiptNumber)
	return s.scanRecord(ctx, row)
}

// List returns records newest transaction date first, optionally filtered.
func (s *SQLiteStore) List(ctx context.Context, filter string) ([]model.ReceiptRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + receiptColumns + ` FROM receipts r`
	var args []any
	if filter != "" {
		pattern := "%" + filter + "%"
		query += `
			WHERE r.vendor_name LIKE ? COLLATE NOCASE
			   OR r.receipt_number LIKE ? COLLATE NOCASE
			   OR r.notes LIKE ? COLLATE NOCASE
			   OR r.store_location LIKE ? COLLATE NOCASE
			   OR EXISTS (
					SELECT 1 FROM line_items li
					WHERE li.receipt_id = r.id AND li.name LIKE ? COLLATE NOCASE
			   )`
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	query += ` ORDER BY r.transaction_date IS NULL, r.transaction_date DESC, r.created_at DESC, r.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err, "failed to list receipts")
	}
	defer func() { _ = rows.Close() }()

	var records []model.ReceiptRecord
	for rows.Next() {
		record, scanErr := scanReceiptRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err, "failed to iterate receipts")
	}

	for i := range records {
		items, itemsErr := s.loadLineItems(ctx, records[i].ID)
		if itemsErr != nil {
			return nil, itemsErr
		}
		records[i].LineItems = items
	}

	return records, nil
}

// Update rewrites a record's scalar fields. Line items are untouched.
func (s *SQLiteStore) Update(ctx context.Context, record *model.ReceiptRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}
	if err := validateString(record.ID, "record.ID"); err != nil {
		return err
	}

	record.UpdatedAt = time.Now().UTC()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateScalarsTx(ctx, tx, record)
	})
}

// ApplyMerge rewrites a record's scalar fields and swaps its owned line
// items in one commit, so a failure on either half leaves the record as it
// was. This is the write path for an accepted reconciliation merge.
func (s *SQLiteStore) ApplyMerge(ctx context.Context, record *model.ReceiptRecord, items []model.LineItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}
	if err := validateString(record.ID, "record.ID"); err != nil {
		return err
	}
	if err := validateLineItems(items); err != nil {
		return err
	}

	record.UpdatedAt = time.Now().UTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateScalarsTx(ctx, tx, record); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE receipt_id = ?`, record.ID); err != nil {
			return mapSQLiteError(err, "failed to delete line items")
		}
		return insertLineItemsTx(ctx, tx, record.ID, items)
	})
	if err != nil {
		return err
	}
	record.LineItems = items
	return nil
}

func updateScalarsTx(ctx context.Context, tx *sql.Tx, record *model.ReceiptRecord) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE receipts SET
			receipt_number = ?,
			vendor_name = ?,
			store_location = ?,
			transaction_date = ?,
			subtotal = ?,
			tax = ?,
			total = ?,
			last_sent_subtotal = ?,
			status = ?,
			notes = ?,
			updated_at = ?
		WHERE id = ?
	`,
		nullableString(record.ReceiptNumber),
		record.VendorName,
		record.StoreLocation,
		nullableTime(record.TransactionDate),
		record.Subtotal.String(),
		record.Tax.String(),
		record.Total.String(),
		record.LastSentSubtotal.String(),
		string(record.Status),
		record.Notes,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return mapSQLiteError(err, "failed to update receipt")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ReplaceLineItems atomically swaps a record's owned items for the given set.
func (s *SQLiteStore) ReplaceLineItems(ctx context.Context, recordID string, items []model.LineItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(recordID, "recordID"); err != nil {
		return err
	}
	if err := validateLineItems(items); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE receipt_id = ?`, recordID); err != nil {
			return mapSQLiteError(err, "failed to delete line items")
		}
		if err := insertLineItemsTx(ctx, tx, recordID, items); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE receipts SET updated_at = ? WHERE id = ?`, time.Now().UTC(), recordID); err != nil {
			return mapSQLiteError(err, "failed to touch receipt")
		}
		return nil
	})
}

// Delete removes a record; its line items cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
		if err != nil {
			return mapSQLiteError(err, "failed to delete receipt")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if affected == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

// DeleteAll removes every record.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM receipts`); err != nil {
			return mapSQLiteError(err, "failed to delete receipts")
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(ctx context.Context, row rowScanner) (*model.ReceiptRecord, error) {
	record, err := scanReceiptRow(row)
	if err != nil {
		return nil, err
	}
	items, err := s.loadLineItems(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.LineItems = items
	return record, nil
}

func scanReceiptRow(row rowScanner) (*model.ReceiptRecord, error) {
	var (
		record        model.ReceiptRecord
		receiptNumber sql.NullString
		txnDate       sql.NullTime
		subtotal      string
		tax           string
		total         string
		lastSent      string
		status        string
	)

	err := row.Scan(
		&record.ID,
		&receiptNumber,
		&record.VendorName,
		&record.StoreLocation,
		&txnDate,
		&subtotal,
		&tax,
		&total,
		&lastSent,
		&status,
		&record.Notes,
		&record.RawDocument,
		&record.ContentType,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, mapSQLiteError(err, "failed to scan receipt")
	}

	record.ReceiptNumber = receiptNumber.String
	if txnDate.Valid {
		when := txnDate.Time.UTC()
		record.TransactionDate = &when
	}
	record.Subtotal = parseStoredAmount(subtotal)
	record.Tax = parseStoredAmount(tax)
	record.Total = parseStoredAmount(total)
	record.LastSentSubtotal = parseStoredAmount(lastSent)
	record.Status = model.ProcessingStatus(status)

	return &record, nil
}

func (s *SQLiteStore) loadLineItems(ctx context.Context, recordID string) ([]model.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, unit_price, quantity, item_code, category
		FROM line_items
		WHERE receipt_id = ?
		ORDER BY position
	`, recordID)
	if err != nil {
		return nil, mapSQLiteError(err, "failed to load line items")
	}
	defer func() { _ = rows.Close() }()

	var items []model.LineItem
	for rows.Next() {
		var (
			item  model.LineItem
			price string
		)
		if err := rows.Scan(&item.Name, &price, &item.Quantity, &item.ItemCode, &item.Category); err != nil {
			return nil, mapSQLiteError(err, "failed to scan line item")
		}
		item.UnitPrice = parseStoredAmount(price)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err, "failed to iterate line items")
	}
	return items, nil
}

func insertLineItemsTx(ctx context.Context, tx *sql.Tx, recordID string, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO line_items (receipt_id, position, name, unit_price, quantity, item_code, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for position, item := range items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		if _, err := stmt.ExecContext(ctx, recordID, position, item.Name, item.UnitPrice.String(), quantity, item.ItemCode, item.Category); err != nil {
			return mapSQLiteError(err, "failed to insert line item")
		}
	}
	return nil
}

// parseStoredAmount decodes a stored decimal string. Stored values are
// written by us, so a parse failure means corruption; degrade to zero rather
// than poisoning every read.
func parseStoredAmount(s string) decimal.Decimal {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// mapSQLiteError translates driver errors into the application taxonomy.
func mapSQLiteError(err error, msg string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", msg, common.ErrDuplicateReceiptNumber)
	}
	return fmt.Errorf("%s: %w: %v", msg, common.ErrPersistence, err)
}
