package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id-or-receipt-number>",
		Short: "Edit a receipt and push the change to the remote service",
		Long: `Update fields on a stored receipt and push the result to the remote
service. Only receipts with a receipt number can be pushed; the remote
service keys updates by number.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().String("vendor", "", "Set the vendor name")
	cmd.Flags().String("location", "", "Set the store location")
	cmd.Flags().String("date", "", "Set the transaction date (YYYY-MM-DD)")
	cmd.Flags().String("subtotal", "", "Set the subtotal amount")
	cmd.Flags().String("tax", "", "Set the tax amount")
	cmd.Flags().String("total", "", "Set the total amount")
	cmd.Flags().String("notes", "", "Set the notes")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipe, err := initPipeline(ctx)
	if err != nil {
		return err
	}
	defer pipe.cleanup()

	record, err := findRecord(cmd, pipe.store, args[0])
	if err != nil {
		return err
	}

	changed := false
	if v, _ := cmd.Flags().GetString("vendor"); v != "" {
		record.VendorName = v
		changed = true
	}
	if v, _ := cmd.Flags().GetString("location"); v != "" {
		record.StoreLocation = v
		changed = true
	}
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", v, err)
		}
		record.TransactionDate = &t
		changed = true
	}
	for _, amount := range []struct {
		flag string
		dst  *decimal.Decimal
	}{
		{"subtotal", &record.Subtotal},
		{"tax", &record.Tax},
		{"total", &record.Total},
	} {
		v, _ := cmd.Flags().GetString(amount.flag)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", amount.flag, v, err)
		}
		*amount.dst = d
		changed = true
	}
	if cmd.Flags().Changed("notes") {
		record.Notes, _ = cmd.Flags().GetString("notes")
		changed = true
	}

	if !changed {
		return fmt.Errorf("no fields to change; see --help for available flags")
	}

	if err := pipe.orchestrator.PushEdit(ctx, record); err != nil {
		return err
	}

	slog.Info("Receipt updated",
		"id", record.ID,
		"receipt_number", record.ReceiptNumber,
		"subtotal", record.Subtotal.StringFixed(2))
	return nil
}
