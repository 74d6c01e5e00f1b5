package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List stored receipts, newest first",
		Long: `List the receipts in the local store, most recent transaction first.
An optional filter matches vendor names, receipt numbers, store
locations, notes, and line item names, case-insensitively.

Examples:
  # All receipts
  receiptd list

  # Receipts mentioning costco anywhere
  receiptd list costco`,
		Args: cobra.MaximumNArgs(1),
		RunE: runList,
	}

	cmd.Flags().Bool("items", false, "Show line items under each receipt")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	showItems, _ := cmd.Flags().GetBool("items")
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}

	records, err := store.List(ctx, filter)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No receipts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "DATE\tVENDOR\tRECEIPT #\tTOTAL\tSTATUS\tID\n"); err != nil {
		return err
	}
	for i := range records {
		r := &records[i]
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			formatDate(r),
			r.VendorName,
			orDash(r.ReceiptNumber),
			r.Total.StringFixed(2),
			r.Status,
			r.ID); err != nil {
			return err
		}
		if showItems {
			for _, item := range r.LineItems {
				if _, err := fmt.Fprintf(w, "\t  %s\t%s\t%s\t\t\n",
					item.Name, orDash(item.ItemCode), item.UnitPrice.StringFixed(2)); err != nil {
					return err
				}
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d receipt(s)\n", len(records))
	return nil
}

func formatDate(r *model.ReceiptRecord) string {
	if r.TransactionDate == nil {
		return "-"
	}
	return r.TransactionDate.Format("2006-01-02")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
