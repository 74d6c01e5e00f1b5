package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/testutil"
)

func sampleParse(receiptNumber string) model.ParsedReceipt {
	date := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	return model.ParsedReceipt{
		VendorName:      "Costco Wholesale",
		TransactionDate: &date,
		ReceiptNumber:   receiptNumber,
		Subtotal:        decimal.RequireFromString("19.99"),
		Tax:             decimal.RequireFromString("1.65"),
		Total:           decimal.RequireFromString("21.64"),
		LineItems: []model.LineItem{
			{Name: "Kirkland Paper Towels", UnitPrice: decimal.RequireFromString("19.99"), Quantity: 1},
		},
	}
}

func TestCreateFromParse_RoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	raw := &model.RawDocument{Data: []byte("%PDF-stub"), ContentType: "application/pdf"}
	record, err := store.CreateFromParse(ctx, sampleParse("123456"), raw)
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)

	got, err := store.GetByReceiptNumber(ctx, "123456")
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "Costco Wholesale", got.VendorName)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("19.99")))
	assert.True(t, got.LastSentSubtotal.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, []byte("%PDF-stub"), got.RawDocument)
	assert.Equal(t, "application/pdf", got.ContentType)
	require.NotNil(t, got.TransactionDate)
	assert.Equal(t, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC), *got.TransactionDate)

	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "Kirkland Paper Towels", got.LineItems[0].Name)
	assert.True(t, got.LineItems[0].UnitPrice.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, 1, got.LineItems[0].Quantity)
}

func TestReceiptNumber_UniqueAmongNonNull(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateFromParse(ctx, sampleParse("123456"), nil)
	require.NoError(t, err)

	_, err = store.CreateFromParse(ctx, sampleParse("123456"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateReceiptNumber)

	// Records without a receipt number do not collide with each other.
	_, err = store.CreateFromParse(ctx, sampleParse(""), nil)
	require.NoError(t, err)
	_, err = store.CreateFromParse(ctx, sampleParse(""), nil)
	require.NoError(t, err)
}

func TestGetByReceiptNumber_NotFound(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.GetByReceiptNumber(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_OrderAndFilter(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	older := sampleParse("A-1")
	olderDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older.TransactionDate = &olderDate
	older.VendorName = "Walmart"
	older.LineItems = []model.LineItem{{Name: "Bananas", UnitPrice: decimal.RequireFromString("1.99"), Quantity: 1}}
	_, err := store.CreateFromParse(ctx, older, nil)
	require.NoError(t, err)

	newer := sampleParse("A-2")
	newerDate := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	newer.TransactionDate = &newerDate
	_, err = store.CreateFromParse(ctx, newer, nil)
	require.NoError(t, err)

	undated := sampleParse("A-3")
	undated.TransactionDate = nil
	_, err = store.CreateFromParse(ctx, undated, nil)
	require.NoError(t, err)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A-2", all[0].ReceiptNumber, "newest transaction date first")
	assert.Equal(t, "A-1", all[1].ReceiptNumber)
	assert.Equal(t, "A-3", all[2].ReceiptNumber, "undated records sort last")

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{name: "vendor name, case insensitive", filter: "walmart", want: []string{"A-1"}},
		{name: "receipt number", filter: "A-2", want: []string{"A-2"}},
		{name: "line item name", filter: "banana", want: []string{"A-1"}},
		{name: "no match", filter: "zzz", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, listErr := store.List(ctx, tt.filter)
			require.NoError(t, listErr)
			var keys []string
			for _, r := range got {
				keys = append(keys, r.ReceiptNumber)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestList_FilterByNotesAndLocation(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, sampleParse("B-1"), nil)
	require.NoError(t, err)

	record.Notes = "warranty claim pending"
	record.StoreLocation = "Seattle WA"
	require.NoError(t, store.Update(ctx, record))

	byNotes, err := store.List(ctx, "warranty")
	require.NoError(t, err)
	require.Len(t, byNotes, 1)

	byLocation, err := store.List(ctx, "seattle")
	require.NoError(t, err)
	require.Len(t, byLocation, 1)
}

func TestUpdate_PersistsScalarFields(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, sampleParse("C-1"), nil)
	require.NoError(t, err)

	record.Status = model.StatusCompleted
	record.LastSentSubtotal = decimal.RequireFromString("50.00")
	record.Notes = "edited"
	require.NoError(t, store.Update(ctx, record))

	got, err := store.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.True(t, got.LastSentSubtotal.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, "edited", got.Notes)
	// Line items are not Update's job.
	assert.Len(t, got.LineItems, 1)
}

func TestUpdate_MissingRecord(t *testing.T) {
	store := testutil.SetupTestDB(t)

	missing := &model.ReceiptRecord{ID: "ghost", VendorName: "Nobody", Status: model.StatusPending}
	err := store.Update(context.Background(), missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReplaceLineItems(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, sampleParse("D-1"), nil)
	require.NoError(t, err)

	replacement := []model.LineItem{
		{Name: "Rotisserie Chicken", UnitPrice: decimal.RequireFromString("4.99"), Quantity: 2, ItemCode: "87654"},
		{Name: "Olive Oil", UnitPrice: decimal.RequireFromString("18.49"), Quantity: 1},
	}
	require.NoError(t, store.ReplaceLineItems(ctx, record.ID, replacement))

	got, err := store.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Rotisserie Chicken", got.LineItems[0].Name)
	assert.Equal(t, 2, got.LineItems[0].Quantity)
	assert.Equal(t, "87654", got.LineItems[0].ItemCode)
	assert.Equal(t, "Olive Oil", got.LineItems[1].Name)
}

func TestApplyMerge_UpdatesScalarsAndItemsTogether(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, sampleParse("D-2"), nil)
	require.NoError(t, err)

	record.VendorName = "Costco Wholesale #451"
	record.Subtotal = decimal.RequireFromString("23.48")
	record.Status = model.StatusCompleted
	items := []model.LineItem{
		{Name: "Rotisserie Chicken", UnitPrice: decimal.RequireFromString("4.99"), Quantity: 1},
		{Name: "Olive Oil", UnitPrice: decimal.RequireFromString("18.49"), Quantity: 1},
	}
	require.NoError(t, store.ApplyMerge(ctx, record, items))

	got, err := store.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Costco Wholesale #451", got.VendorName)
	assert.True(t, got.Subtotal.Equal(decimal.RequireFromString("23.48")))
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Rotisserie Chicken", got.LineItems[0].Name)
	assert.Equal(t, "Olive Oil", got.LineItems[1].Name)
}

func TestApplyMerge_MissingRecordWritesNothing(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	ghost := model.FromParse(sampleParse("D-3"))
	ghost.ID = "no-such-id"
	err := store.ApplyMerge(ctx, &ghost, ghost.LineItems)
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDelete_CascadesToLineItems(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, sampleParse("E-1"), nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, record.ID))

	_, err = store.GetByID(ctx, record.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Re-ingesting the same receipt number succeeds once the old record and
	// its items are gone.
	_, err = store.CreateFromParse(ctx, sampleParse("E-1"), nil)
	require.NoError(t, err)
}

func TestDeleteAll(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateFromParse(ctx, sampleParse("F-1"), nil)
	require.NoError(t, err)
	_, err = store.CreateFromParse(ctx, sampleParse("F-2"), nil)
	require.NoError(t, err)

	require.NoError(t, store.DeleteAll(ctx))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
