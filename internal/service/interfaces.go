// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
)

// ReceiptStore defines the contract for the local persistence layer.
// Implementations must serialize writes; readers observe the last committed
// state. Every mutating call is a single atomic commit.
type ReceiptStore interface {
	// CreateFromParse persists a brand-new record built from an extraction
	// result. It never merges with an existing record; dedup against the
	// remote store is reconciliation's job.
	CreateFromParse(ctx context.Context, parsed model.ParsedReceipt, raw *model.RawDocument) (*model.ReceiptRecord, error)

	// Create persists a fully-formed record, assigning an ID when the
	// caller left it empty. Used for remote-first inserts during
	// reconciliation.
	Create(ctx context.Context, record *model.ReceiptRecord) error

	GetByID(ctx context.Context, id string) (*model.ReceiptRecord, error)
	// GetByReceiptNumber looks a record up by its business key. Returns
	// common.ErrNotFound when no record carries that number.
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (*model.ReceiptRecord, error)

	// List returns records newest transaction date first. A non-empty
	// filter matches case-insensitively against vendor name, receipt
	// number, notes, store location and line-item names.
	List(ctx context.Context, filter string) ([]model.ReceiptRecord, error)

	// Update rewrites a record's scalar fields. Line items are untouched;
	// use ReplaceLineItems for those.
	Update(ctx context.Context, record *model.ReceiptRecord) error

	// ReplaceLineItems atomically deletes a record's owned items and
	// inserts the given set in order.
	ReplaceLineItems(ctx context.Context, recordID string, items []model.LineItem) error

	// ApplyMerge rewrites a record's scalar fields and swaps its owned
	// line items in a single commit. A failure leaves both untouched.
	ApplyMerge(ctx context.Context, record *model.ReceiptRecord, items []model.LineItem) error

	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error

	Migrate(ctx context.Context) error
	Close() error
}

// ReceiptAPI defines the contract for the remote receipt service. Transport
// policy (timeouts, sessions) lives in the implementation; callers only see
// decoded wire records or an error.
type ReceiptAPI interface {
	UploadReceipt(ctx context.Context, raw []byte, contentType string) (*model.RemoteReceipt, error)
	ListReceipts(ctx context.Context) ([]model.RemoteReceipt, error)
	UpdateReceipt(ctx context.Context, receiptNumber string, fields model.ReceiptUpdate) (*model.RemoteReceipt, error)
	DeleteReceipt(ctx context.Context, receiptNumber string) error
}

// Recognizer performs optical character recognition on a rasterized page.
// Implementations return one string per recognized text block, top candidate
// only, in reading order.
type Recognizer interface {
	Recognize(ctx context.Context, pngData []byte) ([]string, error)
}

// RetryOptions configures retry behavior for operations against flaky
// collaborators.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
