package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id-or-receipt-number>",
		Short: "Show a single receipt with its line items",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	record, err := findRecord(cmd, store, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Receipt %s\n", record.ID)
	fmt.Printf("  Vendor:     %s\n", record.VendorName)
	if record.StoreLocation != "" {
		fmt.Printf("  Location:   %s\n", record.StoreLocation)
	}
	fmt.Printf("  Number:     %s\n", orDash(record.ReceiptNumber))
	fmt.Printf("  Date:       %s\n", formatDate(record))
	fmt.Printf("  Subtotal:   %s\n", record.Subtotal.StringFixed(2))
	fmt.Printf("  Tax:        %s\n", record.Tax.StringFixed(2))
	fmt.Printf("  Total:      %s\n", record.Total.StringFixed(2))
	fmt.Printf("  Status:     %s\n", record.Status)
	if record.Notes != "" {
		fmt.Printf("  Notes:      %s\n", record.Notes)
	}

	if len(record.LineItems) == 0 {
		fmt.Println("\nNo line items.")
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "ITEM\tCODE\tQTY\tPRICE\n"); err != nil {
		return err
	}
	for _, item := range record.LineItems {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			item.Name, orDash(item.ItemCode), item.Quantity, item.UnitPrice.StringFixed(2)); err != nil {
			return err
		}
	}
	return w.Flush()
}
