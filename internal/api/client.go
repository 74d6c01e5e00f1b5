// Package api provides a client for the remote receipt service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/model"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
)

// Config holds receipt service configuration.
type Config struct {
	BaseURL string
	Token   string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: api base URL is required", common.ErrMissingConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: invalid api base URL: %v", common.ErrInvalidConfig, err)
	}
	if c.Token == "" {
		return fmt.Errorf("%w: api token is required", common.ErrMissingConfig)
	}
	return nil
}

// Client implements the service.ReceiptAPI interface over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new receipt service client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// UploadReceipt sends raw document bytes for server-side parsing and returns
// the canonical record the server created.
func (c *Client) UploadReceipt(ctx context.Context, raw []byte, contentType string) (*model.RemoteReceipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/receipts", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var receipt model.RemoteReceipt
	if err := c.do(req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListReceipts fetches the full remote receipt list.
func (c *Client) ListReceipts(ctx context.Context) ([]model.RemoteReceipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/receipts", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}

	var receipts []model.RemoteReceipt
	if err := c.do(req, &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// UpdateReceipt pushes edited fields for the given business key and returns
// the server's canonical echo.
func (c *Client) UpdateReceipt(ctx context.Context, receiptNumber string, fields model.ReceiptUpdate) (*model.RemoteReceipt, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}

	endpoint := c.baseURL + "/receipts/" + url.PathEscape(receiptNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var receipt model.RemoteReceipt
	if err := c.do(req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// DeleteReceipt removes the remote record for the given business key.
func (c *Client) DeleteReceipt(ctx context.Context, receiptNumber string) error {
	endpoint := c.baseURL + "/receipts/" + url.PathEscape(receiptNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	return c.do(req, nil)
}

// do executes a request and decodes the JSON response into out when non-nil.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrRemote, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: receipt service throttled the request", common.ErrRateLimit)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", common.ErrRemote, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", common.ErrRemote, err)
	}
	return nil
}

// Ensure Client implements the ReceiptAPI interface.
var _ service.ReceiptAPI = (*Client)(nil)
