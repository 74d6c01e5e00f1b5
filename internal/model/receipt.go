// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProcessingStatus indicates how far a receipt has made it through the pipeline.
type ProcessingStatus string

// Processing status constants.
const (
	StatusPending   ProcessingStatus = "pending"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
)

// Valid reports whether s is one of the known status values.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// UnknownVendor is the vendor name used when extraction recognizes nothing.
const UnknownVendor = "Unknown Store"

// RawDocument is an opaque scanned or printed document as handed to the
// pipeline by a document provider. Immutable once acquired.
type RawDocument struct {
	Data        []byte
	ContentType string // e.g. "application/pdf", "image/jpeg"
}

// IsPDF reports whether the document claims to carry machine-encoded text.
func (d RawDocument) IsPDF() bool {
	return strings.EqualFold(strings.TrimSpace(d.ContentType), "application/pdf")
}

// Fingerprint returns a stable identifier for duplicate detection when a
// receipt number is not yet known.
func (d RawDocument) Fingerprint() string {
	hash := sha256.Sum256(d.Data)
	return fmt.Sprintf("%x", hash)
}

// ExtractedText is the ordered line sequence produced by text acquisition.
type ExtractedText struct {
	Lines []string
}

// TextToLines splits raw acquired text into the line sequence consumed by
// field extraction.
func TextToLines(text string) ExtractedText {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, " \t"))
	}
	return ExtractedText{Lines: lines}
}

// LineItem is a single purchased item on a receipt. Line items are owned by
// their parent record and are never shared across records.
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	ItemCode  string
	Category  string
}

// ParsedReceipt is the structured output of heuristic field extraction.
// Absent fields carry their zero value; extraction never fails outright.
type ParsedReceipt struct {
	VendorName      string
	TransactionDate *time.Time
	ReceiptNumber   string // business key; empty disables dedup
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	LineItems       []LineItem
}

// ReceiptRecord is the persisted receipt entity.
type ReceiptRecord struct {
	ID              string // surrogate key, UUID
	ReceiptNumber   string // business key; empty means unknown
	VendorName      string
	StoreLocation   string
	TransactionDate *time.Time
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	// LastSentSubtotal is the subtotal most recently sent to the remote
	// system for this record. Reconciliation compares the server's echo
	// against this snapshot, not against the current local value, to decide
	// whether a write actually took.
	LastSentSubtotal decimal.Decimal
	Status           ProcessingStatus
	Notes            string
	LineItems        []LineItem
	RawDocument      []byte
	ContentType      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FromParse constructs a fresh local-first record from an extraction result.
// The caller assigns the ID and persists it.
func FromParse(parsed ParsedReceipt) ReceiptRecord {
	return ReceiptRecord{
		ReceiptNumber:    parsed.ReceiptNumber,
		VendorName:       parsed.VendorName,
		TransactionDate:  parsed.TransactionDate,
		Subtotal:         parsed.Subtotal,
		Tax:              parsed.Tax,
		Total:            parsed.Total,
		LastSentSubtotal: parsed.Subtotal,
		Status:           StatusPending,
		LineItems:        parsed.LineItems,
	}
}
