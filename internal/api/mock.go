package api

import (
	"context"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
)

// MockClient is a mock implementation of service.ReceiptAPI for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	UploadReceiptFn func(ctx context.Context, raw []byte, contentType string) (*model.RemoteReceipt, error)
	ListReceiptsFn  func(ctx context.Context) ([]model.RemoteReceipt, error)
	UpdateReceiptFn func(ctx context.Context, receiptNumber string, fields model.ReceiptUpdate) (*model.RemoteReceipt, error)
	DeleteReceiptFn func(ctx context.Context, receiptNumber string) error

	// Call tracking
	UploadCalls []UploadCall
	ListCalls   int
	UpdateCalls []UpdateCall
	DeleteCalls []string
}

// UploadCall records the parameters of an UploadReceipt call.
type UploadCall struct {
	Raw         []byte
	ContentType string
}

// UpdateCall records the parameters of an UpdateReceipt call.
type UpdateCall struct {
	ReceiptNumber string
	Fields        model.ReceiptUpdate
}

// NewMockClient creates a new mock receipt service client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// UploadReceipt implements service.ReceiptAPI.
func (m *MockClient) UploadReceipt(ctx context.Context, raw []byte, contentType string) (*model.RemoteReceipt, error) {
	m.UploadCalls = append(m.UploadCalls, UploadCall{Raw: raw, ContentType: contentType})

	if m.UploadReceiptFn != nil {
		return m.UploadReceiptFn(ctx, raw, contentType)
	}
	return &model.RemoteReceipt{}, nil
}

// ListReceipts implements service.ReceiptAPI.
func (m *MockClient) ListReceipts(ctx context.Context) ([]model.RemoteReceipt, error) {
	m.ListCalls++

	if m.ListReceiptsFn != nil {
		return m.ListReceiptsFn(ctx)
	}
	return []model.RemoteReceipt{}, nil
}

// UpdateReceipt implements service.ReceiptAPI.
func (m *MockClient) UpdateReceipt(ctx context.Context, receiptNumber string, fields model.ReceiptUpdate) (*model.RemoteReceipt, error) {
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{ReceiptNumber: receiptNumber, Fields: fields})

	if m.UpdateReceiptFn != nil {
		return m.UpdateReceiptFn(ctx, receiptNumber, fields)
	}
	return &model.RemoteReceipt{}, nil
}

// DeleteReceipt implements service.ReceiptAPI.
func (m *MockClient) DeleteReceipt(ctx context.Context, receiptNumber string) error {
	m.DeleteCalls = append(m.DeleteCalls, receiptNumber)

	if m.DeleteReceiptFn != nil {
		return m.DeleteReceiptFn(ctx, receiptNumber)
	}
	return nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.UploadCalls = nil
	m.ListCalls = 0
	m.UpdateCalls = nil
	m.DeleteCalls = nil
}

// Ensure MockClient implements the ReceiptAPI interface.
var _ service.ReceiptAPI = (*MockClient)(nil)
