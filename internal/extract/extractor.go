// Package extract recovers structured receipt fields from unstructured text
// lines. Every heuristic here may produce false negatives; none may fail.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
)

var (
	dateRe   = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)
	amountRe = regexp.MustCompile(`\d+\.\d{2}`)
	itemRe   = regexp.MustCompile(`^(.+?)\s+(\d+\.\d{2})$`)
)

const dateLayout = "01/02/2006"

// vendorHeaderWindow bounds the vendor scan: store names appear in the
// banner at the top of a receipt, and scanning further produces false
// positives from item descriptions.
const vendorHeaderWindow = 5

// rule is one independent heuristic over the full line sequence. Rules run
// in order and each fills only the fields it owns.
type rule func(lines []string, r *model.ParsedReceipt)

var rules = []rule{
	vendorRule,
	dateRule,
	receiptNumberRule,
	totalsRule,
	lineItemRule,
}

// Extract applies the ordered heuristics to the given lines. Fields the
// heuristics cannot recover are left at their defaults; Extract never fails.
func Extract(lines []string) model.ParsedReceipt {
	parsed := model.ParsedReceipt{
		VendorName: model.UnknownVendor,
	}
	for _, apply := range rules {
		apply(lines, &parsed)
	}
	return parsed
}

// knownVendors maps lowercase keywords to canonical vendor names. Ordered so
// the first matching keyword wins deterministically.
var knownVendors = []struct {
	keyword   string
	canonical string
}{
	{"costco", "Costco Wholesale"},
	{"walmart", "Walmart"},
	{"target", "Target"},
	{"kroger", "Kroger"},
	{"safeway", "Safeway"},
	{"walgreens", "Walgreens"},
	{"cvs", "CVS Pharmacy"},
	{"home depot", "The Home Depot"},
	{"lowe's", "Lowe's"},
	{"trader joe", "Trader Joe's"},
	{"whole foods", "Whole Foods Market"},
	{"sam's club", "Sam's Club"},
	{"best buy", "Best Buy"},
	{"aldi", "Aldi"},
}

func vendorRule(lines []string, r *model.ParsedReceipt) {
	window := lines
	if len(window) > vendorHeaderWindow {
		window = window[:vendorHeaderWindow]
	}
	for _, line := range window {
		lower := strings.ToLower(line)
		for _, v := range knownVendors {
			if strings.Contains(lower, v.keyword) {
				r.VendorName = v.canonical
				return
			}
		}
	}
}

func dateRule(lines []string, r *model.ParsedReceipt) {
	for _, line := range lines {
		match := dateRe.FindString(line)
		if match == "" {
			continue
		}
		when, err := time.Parse(dateLayout, match)
		if err != nil {
			continue
		}
		r.TransactionDate = &when
		return
	}
}

func receiptNumberRule(lines []string, r *model.ParsedReceipt) {
	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), "receipt") {
			continue
		}
		idx := strings.Index(line, "#")
		if idx < 0 {
			continue
		}
		number := strings.TrimSpace(line[idx+1:])
		if number != "" {
			r.ReceiptNumber = number
			return
		}
	}
}

// totalBucket classifies a line for the totals scan.
type totalBucket int

const (
	bucketNone totalBucket = iota
	bucketTotal
	bucketSubtotal
	bucketTax
)

func classifyTotals(line string) totalBucket {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "subtotal"):
		return bucketSubtotal
	case strings.Contains(lower, "total"):
		return bucketTotal
	case strings.Contains(lower, "tax"):
		return bucketTax
	}
	return bucketNone
}

// totalsRule scans bottom-up because totals sit at the end of a receipt.
// The first amount found per bucket sticks; lines higher up never overwrite.
func totalsRule(lines []string, r *model.ParsedReceipt) {
	var haveTotal, haveSubtotal, haveTax bool
	for i := len(lines) - 1; i >= 0; i-- {
		bucket := classifyTotals(lines[i])
		if bucket == bucketNone {
			continue
		}
		amount, ok := firstAmount(lines[i])
		if !ok {
			continue
		}
		switch bucket {
		case bucketTotal:
			if !haveTotal {
				r.Total = amount
				haveTotal = true
			}
		case bucketSubtotal:
			if !haveSubtotal {
				r.Subtotal = amount
				haveSubtotal = true
			}
		case bucketTax:
			if !haveTax {
				r.Tax = amount
				haveTax = true
			}
		}
	}
}

// lineItemRule treats any line ending in whitespace plus a two-decimal
// amount as an item, except lines already claimed by the totals classifier.
func lineItemRule(lines []string, r *model.ParsedReceipt) {
	for _, line := range lines {
		if classifyTotals(line) != bucketNone {
			continue
		}
		match := itemRe.FindStringSubmatch(strings.TrimRight(line, " \t"))
		if match == nil {
			continue
		}
		price, err := decimal.NewFromString(match[2])
		if err != nil {
			continue
		}
		r.LineItems = append(r.LineItems, model.LineItem{
			Name:      strings.TrimSpace(match[1]),
			UnitPrice: price,
			Quantity:  1,
		})
	}
}

// firstAmount extracts the first two-decimal-place amount from a line.
// Amounts that fail to parse as a finite decimal count as not found.
func firstAmount(line string) (decimal.Decimal, bool) {
	match := amountRe.FindString(line)
	if match == "" {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}
