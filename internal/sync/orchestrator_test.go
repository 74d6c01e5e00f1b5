package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/api"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/reconcile"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/testutil"
)

var costcoLines = []string{
	"COSTCO WHOLESALE",
	"07/10/2025",
	"Receipt #123456",
	"Kirkland Paper Towels   19.99",
	"Subtotal  19.99",
	"Tax  1.65",
	"Total  21.64",
}

type fakeAcquirer struct {
	lines   []string
	err     error
	started chan struct{}
	proceed chan struct{}
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ model.RawDocument) (model.ExtractedText, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.proceed != nil {
		<-f.proceed
	}
	if f.err != nil {
		return model.ExtractedText{}, f.err
	}
	return model.ExtractedText{Lines: f.lines}, nil
}

func newTestOrchestrator(t *testing.T, acquirer TextAcquirer, remote service.ReceiptAPI) (*Orchestrator, service.ReceiptStore) {
	t.Helper()
	store := testutil.SetupTestDB(t)
	o := New(acquirer, store, remote, reconcile.New(store))
	// Keep failing tests fast.
	o.retryOpts = service.RetryOptions{MaxAttempts: 1}
	return o, store
}

func pdfDoc(payload string) model.RawDocument {
	return model.RawDocument{Data: []byte(payload), ContentType: "application/pdf"}
}

func TestIngest_LocalFirstOnUploadFailure(t *testing.T) {
	mock := api.NewMockClient()
	mock.UploadReceiptFn = func(_ context.Context, _ []byte, _ string) (*model.RemoteReceipt, error) {
		return nil, errors.New("network unreachable")
	}
	o, store := newTestOrchestrator(t, &fakeAcquirer{lines: costcoLines}, mock)

	record, err := o.Ingest(context.Background(), pdfDoc("doc-1"))

	// A document the user scanned must never be lost to a network failure.
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.Equal(t, "123456", record.ReceiptNumber)

	persisted, err := store.GetByReceiptNumber(context.Background(), "123456")
	require.NoError(t, err)
	assert.Equal(t, record.ID, persisted.ID)
}

func TestIngest_UploadSuccessReconciles(t *testing.T) {
	mock := api.NewMockClient()
	mock.UploadReceiptFn = func(_ context.Context, _ []byte, _ string) (*model.RemoteReceipt, error) {
		return &model.RemoteReceipt{
			TransactionNumber: "123456",
			Store:             "Costco Wholesale",
			StoreLocation:     "Seattle WA",
			TransactionDate:   "2025-07-10",
			Subtotal:          "19.99",
			Tax:               "1.65",
			Total:             "21.64",
			Items: []model.RemoteLineItem{
				{Description: "KS PAPER TOWELS 12PK", Price: "19.99", Quantity: 1, ItemCode: "142783"},
			},
			ParseSuccessful: true,
		}, nil
	}
	o, _ := newTestOrchestrator(t, &fakeAcquirer{lines: costcoLines}, mock)

	record, err := o.Ingest(context.Background(), pdfDoc("doc-1"))

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, record.Status)
	assert.Equal(t, "Seattle WA", record.StoreLocation)
	require.Len(t, record.LineItems, 1)
	assert.Equal(t, "KS PAPER TOWELS 12PK", record.LineItems[0].Name)
	assert.Equal(t, "142783", record.LineItems[0].ItemCode)

	require.Len(t, mock.UploadCalls, 1)
	assert.Equal(t, []byte("doc-1"), mock.UploadCalls[0].Raw)
	assert.Equal(t, "application/pdf", mock.UploadCalls[0].ContentType)
}

func TestIngest_AdoptsServerAssignedNumber(t *testing.T) {
	// No receipt number in the document; the server assigns one.
	lines := []string{"COSTCO WHOLESALE", "Total 21.64"}

	mock := api.NewMockClient()
	mock.UploadReceiptFn = func(_ context.Context, _ []byte, _ string) (*model.RemoteReceipt, error) {
		return &model.RemoteReceipt{
			TransactionNumber: "SRV-900",
			Store:             "Costco Wholesale",
			Subtotal:          "0",
			ParseSuccessful:   true,
		}, nil
	}
	o, store := newTestOrchestrator(t, &fakeAcquirer{lines: lines}, mock)

	record, err := o.Ingest(context.Background(), pdfDoc("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, "SRV-900", record.ReceiptNumber)

	all, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1, "the reconcile pass must merge into the ingested record, not insert a duplicate")
}

func TestIngest_RejectsConcurrentDuplicate(t *testing.T) {
	acquirer := &fakeAcquirer{
		lines:   costcoLines,
		started: make(chan struct{}),
		proceed: make(chan struct{}),
	}
	o, _ := newTestOrchestrator(t, acquirer, api.NewMockClient())

	done := make(chan error, 1)
	go func() {
		_, err := o.Ingest(context.Background(), pdfDoc("doc-1"))
		done <- err
	}()

	<-acquirer.started

	// Same document while the first ingestion is still running.
	_, err := o.Ingest(context.Background(), pdfDoc("doc-1"))
	assert.ErrorIs(t, err, common.ErrSyncInFlight)

	close(acquirer.proceed)
	require.NoError(t, <-done)
}

func TestIngest_AcquisitionFailureCreatesNoRecord(t *testing.T) {
	acquirer := &fakeAcquirer{err: common.ErrInvalidDocument}
	o, store := newTestOrchestrator(t, acquirer, api.NewMockClient())

	_, err := o.Ingest(context.Background(), pdfDoc("doc-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidDocument)

	all, listErr := store.List(context.Background(), "")
	require.NoError(t, listErr)
	assert.Empty(t, all)
}

func TestPull_AppliesRemoteBatch(t *testing.T) {
	mock := api.NewMockClient()
	mock.ListReceiptsFn = func(_ context.Context) ([]model.RemoteReceipt, error) {
		return []model.RemoteReceipt{
			{TransactionNumber: "P-1", Store: "Target", Subtotal: "5.00", ParseSuccessful: true},
			{TransactionNumber: "P-2", Store: "Walmart", Subtotal: "6.00", ParseSuccessful: true},
		}, nil
	}
	o, store := newTestOrchestrator(t, &fakeAcquirer{}, mock)

	require.NoError(t, o.Pull(context.Background()))

	all, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPull_FetchFailureLeavesStoreUntouched(t *testing.T) {
	mock := api.NewMockClient()
	mock.ListReceiptsFn = func(_ context.Context) ([]model.RemoteReceipt, error) {
		return nil, errors.New("gateway timeout")
	}
	o, store := newTestOrchestrator(t, &fakeAcquirer{}, mock)

	err := o.Pull(context.Background())
	require.Error(t, err)

	all, listErr := store.List(context.Background(), "")
	require.NoError(t, listErr)
	assert.Empty(t, all)
}

func TestPushEdit_SnapshotsSentSubtotal(t *testing.T) {
	mock := api.NewMockClient()
	mock.UpdateReceiptFn = func(_ context.Context, number string, fields model.ReceiptUpdate) (*model.RemoteReceipt, error) {
		// Server echoes the accepted update.
		return &model.RemoteReceipt{
			TransactionNumber: number,
			Store:             fields.Store,
			Subtotal:          fields.Subtotal,
			Tax:               fields.Tax,
			Total:             fields.Total,
			ParseSuccessful:   true,
		}, nil
	}
	o, store := newTestOrchestrator(t, &fakeAcquirer{}, mock)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, model.ParsedReceipt{
		VendorName:    "Costco Wholesale",
		ReceiptNumber: "E-1",
		Subtotal:      decimal.RequireFromString("10.00"),
	}, nil)
	require.NoError(t, err)

	record.Subtotal = decimal.RequireFromString("50.00")
	require.NoError(t, o.PushEdit(ctx, record))

	require.Len(t, mock.UpdateCalls, 1)
	assert.Equal(t, "E-1", mock.UpdateCalls[0].ReceiptNumber)
	assert.Equal(t, "50.00", mock.UpdateCalls[0].Fields.Subtotal)

	got, err := store.GetByReceiptNumber(ctx, "E-1")
	require.NoError(t, err)
	assert.True(t, got.LastSentSubtotal.Equal(decimal.RequireFromString("50.00")),
		"the sent snapshot must reflect what went over the wire")
	assert.Equal(t, model.StatusCompleted, got.Status, "accepted echo reconciles into the record")
}

func TestPushEdit_RequiresReceiptNumber(t *testing.T) {
	o, store := newTestOrchestrator(t, &fakeAcquirer{}, api.NewMockClient())
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, model.ParsedReceipt{VendorName: "Target"}, nil)
	require.NoError(t, err)

	assert.Error(t, o.PushEdit(ctx, record))
}

func TestRemove_PropagatesRemoteDelete(t *testing.T) {
	mock := api.NewMockClient()
	o, store := newTestOrchestrator(t, &fakeAcquirer{}, mock)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, model.ParsedReceipt{
		VendorName:    "Costco Wholesale",
		ReceiptNumber: "D-1",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, o.Remove(ctx, record))

	_, err = store.GetByID(ctx, record.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, []string{"D-1"}, mock.DeleteCalls)
}

func TestRemove_LocalDeleteStandsOnRemoteFailure(t *testing.T) {
	mock := api.NewMockClient()
	mock.DeleteReceiptFn = func(_ context.Context, _ string) error {
		return errors.New("service unavailable")
	}
	o, store := newTestOrchestrator(t, &fakeAcquirer{}, mock)
	ctx := context.Background()

	record, err := store.CreateFromParse(ctx, model.ParsedReceipt{
		VendorName:    "Costco Wholesale",
		ReceiptNumber: "D-2",
	}, nil)
	require.NoError(t, err)

	require.NoError(t, o.Remove(ctx, record))

	_, err = store.GetByID(ctx, record.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
