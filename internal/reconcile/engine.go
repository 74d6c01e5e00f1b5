// Package reconcile merges batches of remote receipt records into the local
// store, deciding per record whether local or remote data wins.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
)

// acceptTolerance is the absolute subtotal difference within which the
// server is considered to have accepted the client's last write. The remote
// system silently ignores some field updates, and its echo is the only
// signal for whether a write took; there is no reliable timestamp ordering
// across the two stores.
var acceptTolerance = decimal.RequireFromString("0.01")

// Engine applies remote batches against the local receipt store.
type Engine struct {
	store service.ReceiptStore
}

// New creates a reconciliation engine.
func New(store service.ReceiptStore) *Engine {
	return &Engine{store: store}
}

// Reconcile merges a remote batch into the store. Records are processed
// independently and best-effort: one record's failure is logged and skipped.
// An error is returned only when every record in a non-empty batch failed.
func (e *Engine) Reconcile(ctx context.Context, batch []model.RemoteReceipt) error {
	if len(batch) == 0 {
		return nil
	}

	var inserted, merged, rejected, failed int

	for _, remote := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.reconcileOne(ctx, remote, &inserted, &merged, &rejected); err != nil {
			failed++
			slog.Error("Failed to reconcile remote receipt",
				"receipt_number", remote.TransactionNumber,
				"error", err)
		}
	}

	slog.Info("Reconciled remote batch",
		"total", len(batch),
		"inserted", inserted,
		"merged", merged,
		"rejected", rejected,
		"failed", failed)

	if failed == len(batch) {
		return fmt.Errorf("all %d records failed to reconcile", failed)
	}
	return nil
}

func (e *Engine) reconcileOne(ctx context.Context, remote model.RemoteReceipt, inserted, merged, rejected *int) error {
	key := strings.TrimSpace(remote.TransactionNumber)
	if key == "" {
		// Without a business key there is nothing to merge against, so a
		// keyless remote inserts a fresh record on every pass. Pulls are
		// idempotent only for keyed batches; the server assigns numbers on
		// ingest, so keyless records should not persist on its side.
		record := recordFromRemote(remote)
		if err := e.store.Create(ctx, &record); err != nil {
			return err
		}
		*inserted++
		return nil
	}

	local, err := e.store.GetByReceiptNumber(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		record := recordFromRemote(remote)
		if err := e.store.Create(ctx, &record); err != nil {
			return err
		}
		*inserted++
		return nil
	}
	if err != nil {
		return err
	}

	remoteSubtotal := lenientAmount(remote.Subtotal)
	diff := remoteSubtotal.Sub(local.LastSentSubtotal).Abs()
	if diff.GreaterThan(acceptTolerance) {
		// The server ignored our last write (stale write, validation
		// rejection, or a concurrent modification). Applying its echo would
		// destroy local edits, so keep the record exactly as it is.
		slog.Warn("Remote subtotal diverges from last sent value, keeping local record",
			"receipt_number", key,
			"last_sent", local.LastSentSubtotal,
			"remote", remoteSubtotal)
		if err := e.store.Update(ctx, local); err != nil {
			return err
		}
		*rejected++
		return nil
	}

	// Server accepted the update: remote is canonical for this record.
	local.VendorName = remote.Store
	local.StoreLocation = remote.StoreLocation
	local.TransactionDate = lenientDate(remote.TransactionDate)
	local.Subtotal = remoteSubtotal
	local.Tax = lenientAmount(remote.Tax)
	local.Total = lenientAmount(remote.Total)
	local.Status = statusFromRemote(remote)

	if err := e.store.ApplyMerge(ctx, local, itemsFromRemote(remote.Items)); err != nil {
		return err
	}
	*merged++
	return nil
}

// recordFromRemote builds a remote-first record. Lenient field parsing:
// a malformed amount or date degrades to zero or absent, never aborts the
// insert.
func recordFromRemote(remote model.RemoteReceipt) model.ReceiptRecord {
	subtotal := lenientAmount(remote.Subtotal)
	record := model.ReceiptRecord{
		ReceiptNumber:   strings.TrimSpace(remote.TransactionNumber),
		VendorName:      remote.Store,
		StoreLocation:   remote.StoreLocation,
		TransactionDate: lenientDate(remote.TransactionDate),
		Subtotal:        subtotal,
		Tax:             lenientAmount(remote.Tax),
		Total:           lenientAmount(remote.Total),
		// The server already holds this record, so its subtotal is by
		// definition the last value it saw from us.
		LastSentSubtotal: subtotal,
		Status:           statusFromRemote(remote),
		LineItems:        itemsFromRemote(remote.Items),
	}
	if record.VendorName == "" {
		record.VendorName = model.UnknownVendor
	}
	return record
}

func statusFromRemote(remote model.RemoteReceipt) model.ProcessingStatus {
	if remote.ParseSuccessful {
		return model.StatusCompleted
	}
	return model.StatusFailed
}

// itemsFromRemote converts wire items to owned line items. Category is never
// populated from remote data.
func itemsFromRemote(items []model.RemoteLineItem) []model.LineItem {
	converted := make([]model.LineItem, 0, len(items))
	for _, item := range items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		converted = append(converted, model.LineItem{
			Name:      item.Description,
			UnitPrice: lenientAmount(item.Price),
			Quantity:  quantity,
			ItemCode:  item.ItemCode,
		})
	}
	return converted
}

// lenientAmount parses a decimal-formatted wire string, tolerating currency
// symbols and thousands separators. Anything unparseable is zero.
func lenientAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// lenientDate parses an ISO-8601 wire date. Anything unparseable is absent.
func lenientDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if when, err := time.Parse(layout, s); err == nil {
			when = when.UTC()
			return &when
		}
	}
	return nil
}
