package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/storage"
)

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id-or-receipt-number>",
		Short: "Delete a receipt locally and remotely",
		Long: `Delete a receipt and its line items from the local store, then request
deletion from the remote service. The local delete stands even when
the remote delete fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runDelete,
	}

	cmd.Flags().Bool("all", false, "Delete every receipt in the local store")

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	ctx := cmd.Context()

	pipe, err := initPipeline(ctx)
	if err != nil {
		return err
	}
	defer pipe.cleanup()

	if all {
		if err := pipe.store.DeleteAll(ctx); err != nil {
			return err
		}
		slog.Info("Deleted all local receipts")
		return nil
	}

	record, err := findRecord(cmd, pipe.store, args[0])
	if err != nil {
		return err
	}

	if err := pipe.orchestrator.Remove(ctx, record); err != nil {
		return err
	}

	slog.Info("Receipt deleted",
		"id", record.ID,
		"vendor", record.VendorName,
		"receipt_number", record.ReceiptNumber)
	return nil
}

// findRecord resolves the argument as a record ID first, then as a receipt
// number.
func findRecord(cmd *cobra.Command, store *storage.SQLiteStore, key string) (*model.ReceiptRecord, error) {
	record, err := store.GetByID(cmd.Context(), key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	record, err = store.GetByReceiptNumber(cmd.Context(), key)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("no receipt with id or number %q", key)
	}
	return record, err
}
