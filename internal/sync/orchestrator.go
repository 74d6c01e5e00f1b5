// Package sync drives the full receipt pipeline: acquisition, extraction,
// local persistence, remote upload, and reconciliation of the server's echo.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/extract"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/reconcile"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
)

// TextAcquirer converts a raw document into text lines.
type TextAcquirer interface {
	Acquire(ctx context.Context, doc model.RawDocument) (model.ExtractedText, error)
}

// Orchestrator exposes the pipeline entry points consumed by the
// presentation layer. Construct one at startup and share it.
type Orchestrator struct {
	acquirer  TextAcquirer
	store     service.ReceiptStore
	api       service.ReceiptAPI
	engine    *reconcile.Engine
	retryOpts service.RetryOptions

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an orchestrator with the given collaborators.
func New(acquirer TextAcquirer, store service.ReceiptStore, remote service.ReceiptAPI, engine *reconcile.Engine) *Orchestrator {
	return &Orchestrator{
		acquirer: acquirer,
		store:    store,
		api:      remote,
		engine:   engine,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
		},
		inflight: make(map[string]struct{}),
	}
}

// tryAcquireKeys reserves the given sync keys, or fails if any is already
// held. At most one upload may be in flight per logical receipt.
func (o *Orchestrator) tryAcquireKeys(keys ...string) (release func(), err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, key := range keys {
		if _, held := o.inflight[key]; held {
			return nil, fmt.Errorf("%w: %s", common.ErrSyncInFlight, key)
		}
	}
	for _, key := range keys {
		o.inflight[key] = struct{}{}
	}
	held := append([]string(nil), keys...)
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for _, key := range held {
			delete(o.inflight, key)
		}
	}, nil
}

// Ingest runs a document through acquisition, extraction and local
// persistence, then mirrors it to the remote service. The local record
// survives any remote failure; only the mirroring is best-effort.
func (o *Orchestrator) Ingest(ctx context.Context, doc model.RawDocument) (*model.ReceiptRecord, error) {
	release, err := o.tryAcquireKeys("doc:" + doc.Fingerprint())
	if err != nil {
		return nil, err
	}
	defer release()

	text, err := o.acquirer.Acquire(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("acquiring document text: %w", err)
	}

	parsed := extract.Extract(text.Lines)

	if parsed.ReceiptNumber != "" {
		releaseKey, keyErr := o.tryAcquireKeys("receipt:" + parsed.ReceiptNumber)
		if keyErr != nil {
			return nil, keyErr
		}
		defer releaseKey()
	}

	record, err := o.store.CreateFromParse(ctx, parsed, &doc)
	if err != nil {
		return nil, fmt.Errorf("persisting receipt: %w", err)
	}

	slog.Info("Ingested receipt locally",
		"id", record.ID,
		"vendor", record.VendorName,
		"receipt_number", record.ReceiptNumber,
		"line_items", len(record.LineItems))

	var remote *model.RemoteReceipt
	uploadErr := common.WithRetry(ctx, func() error {
		var opErr error
		remote, opErr = o.api.UploadReceipt(ctx, doc.Data, doc.ContentType)
		return opErr
	}, o.retryOpts)
	if uploadErr != nil {
		// Local-first durability: the scanned document is never lost merely
		// because the network call failed.
		slog.Warn("Remote upload failed, keeping local record",
			"id", record.ID,
			"error", uploadErr)
		return record, nil
	}

	o.adoptReceiptNumber(ctx, record, remote)

	if remote.TransactionNumber == "" {
		// Without a server-assigned key the echo cannot be merged back;
		// inserting it would duplicate the record just created.
		slog.Warn("Upload response carries no receipt number, skipping reconcile", "id", record.ID)
		return record, nil
	}

	if err := o.engine.Reconcile(ctx, []model.RemoteReceipt{*remote}); err != nil {
		slog.Warn("Failed to reconcile upload response", "id", record.ID, "error", err)
		return record, nil
	}

	refreshed, err := o.store.GetByID(ctx, record.ID)
	if err != nil {
		return record, nil
	}
	return refreshed, nil
}

// adoptReceiptNumber links a number-less local record to the key the server
// assigned, so the reconcile pass merges into it instead of inserting a
// duplicate.
func (o *Orchestrator) adoptReceiptNumber(ctx context.Context, record *model.ReceiptRecord, remote *model.RemoteReceipt) {
	if record.ReceiptNumber != "" || remote.TransactionNumber == "" {
		return
	}
	record.ReceiptNumber = remote.TransactionNumber
	if err := o.store.Update(ctx, record); err != nil {
		slog.Warn("Failed to adopt server-assigned receipt number",
			"id", record.ID,
			"receipt_number", remote.TransactionNumber,
			"error", err)
		record.ReceiptNumber = ""
	}
}

// Pull fetches the full remote list and reconciles it into the local store.
// A fetch failure leaves the store untouched.
func (o *Orchestrator) Pull(ctx context.Context) error {
	var remotes []model.RemoteReceipt
	err := common.WithRetry(ctx, func() error {
		var opErr error
		remotes, opErr = o.api.ListReceipts(ctx)
		return opErr
	}, o.retryOpts)
	if err != nil {
		return fmt.Errorf("fetching remote receipts: %w", err)
	}

	return o.engine.Reconcile(ctx, remotes)
}

// PushEdit sends a locally edited record to the remote service and folds the
// server's echo back through reconciliation. The subtotal snapshot is
// persisted before the request goes out, so a later pull compares against
// what was actually sent.
func (o *Orchestrator) PushEdit(ctx context.Context, record *model.ReceiptRecord) error {
	if record.ReceiptNumber == "" {
		return fmt.Errorf("record %s has no receipt number to push against", record.ID)
	}

	release, err := o.tryAcquireKeys("receipt:" + record.ReceiptNumber)
	if err != nil {
		return err
	}
	defer release()

	record.LastSentSubtotal = record.Subtotal
	if err := o.store.Update(ctx, record); err != nil {
		return fmt.Errorf("recording sent snapshot: %w", err)
	}

	var remote *model.RemoteReceipt
	err = common.WithRetry(ctx, func() error {
		var opErr error
		remote, opErr = o.api.UpdateReceipt(ctx, record.ReceiptNumber, updateFromRecord(record))
		return opErr
	}, o.retryOpts)
	if err != nil {
		return fmt.Errorf("pushing edit: %w", err)
	}

	return o.engine.Reconcile(ctx, []model.RemoteReceipt{*remote})
}

// Remove deletes a record locally and propagates the delete to the remote
// service. The local delete stands even when the remote call fails.
func (o *Orchestrator) Remove(ctx context.Context, record *model.ReceiptRecord) error {
	if err := o.store.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}

	if record.ReceiptNumber == "" {
		return nil
	}

	err := common.WithRetry(ctx, func() error {
		return o.api.DeleteReceipt(ctx, record.ReceiptNumber)
	}, o.retryOpts)
	if err != nil {
		slog.Warn("Remote delete failed, local record already removed",
			"receipt_number", record.ReceiptNumber,
			"error", err)
	}
	return nil
}

// updateFromRecord converts a local record to the wire-level edit payload.
func updateFromRecord(record *model.ReceiptRecord) model.ReceiptUpdate {
	update := model.ReceiptUpdate{
		Store:         record.VendorName,
		StoreLocation: record.StoreLocation,
		Subtotal:      record.Subtotal.StringFixed(2),
		Tax:           record.Tax.StringFixed(2),
		Total:         record.Total.StringFixed(2),
	}
	if record.TransactionDate != nil {
		update.TransactionDate = record.TransactionDate.UTC().Format("2006-01-02")
	}
	for _, item := range record.LineItems {
		update.Items = append(update.Items, model.RemoteLineItem{
			Description: item.Name,
			Price:       item.UnitPrice.StringFixed(2),
			Quantity:    item.Quantity,
			ItemCode:    item.ItemCode,
		})
	}
	return update
}
