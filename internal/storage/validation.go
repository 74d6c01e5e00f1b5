package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateRecord(record *model.ReceiptRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if strings.TrimSpace(record.VendorName) == "" {
		return fmt.Errorf("record vendor name cannot be empty")
	}
	if record.Status != "" && !record.Status.Valid() {
		return fmt.Errorf("invalid processing status: %q", record.Status)
	}
	if record.Subtotal.IsNegative() || record.Tax.IsNegative() || record.Total.IsNegative() {
		return fmt.Errorf("amounts cannot be negative")
	}
	return validateLineItems(record.LineItems)
}

func validateLineItems(items []model.LineItem) error {
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("line item %d: name cannot be empty", i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("line item %d: unit price cannot be negative", i)
		}
	}
	return nil
}
