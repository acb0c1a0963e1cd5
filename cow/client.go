// Package cow is a client for the CoW Protocol order-book API.
//
// It covers the four collaborators the bot needs: account order history
// (paginated), order submission, order cancellation and the open-orders
// query, all against a single account on one network.
package cow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BaseURL is the order-book API root for the Base network.
const BaseURL = "https://api.cow.fi/base/api/v1"

// ErrOrderGone reports a cancellation against an order the venue no longer
// considers open (already filled, expired or cancelled).
var ErrOrderGone = errors.New("order already gone")

// Client talks to the CoW order-book API for one account.
type Client struct {
	baseURL    string
	account    string
	httpClient *http.Client
}

// NewClient creates an API client for the given account address.
func NewClient(baseURL, account string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		account: account,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// AccountOrders fetches one page of the account's order history, newest
// first. Offset/limit paginate through older orders.
func (c *Client) AccountOrders(ctx context.Context, limit, offset int) ([]OrderRecord, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		params.Set("offset", fmt.Sprintf("%d", offset))
	}

	apiURL := fmt.Sprintf("%s/account/%s/orders?%s", c.baseURL, c.account, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var records []OrderRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}

// SubmitOrder posts a signed order and returns the venue's order UID.
func (c *Client) SubmitOrder(ctx context.Context, order OrderRequest) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	// The API returns the UID as a bare JSON string.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	uid := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if uid == "" {
		return "", fmt.Errorf("order submission returned empty uid")
	}
	return uid, nil
}

// cancelRequest is the signed cancellation proof for one order.
type cancelRequest struct {
	OrderUIDs     []string `json:"orderUids"`
	Signature     string   `json:"signature"`
	SigningScheme string   `json:"signingScheme"`
}

// CancelOrder asks the venue to drop an open order. Returns ErrOrderGone when
// the order is no longer open, which callers may treat as success.
func (c *Client) CancelOrder(ctx context.Context, uid, signature string) error {
	body, err := json.Marshal(cancelRequest{
		OrderUIDs:     []string{uid},
		Signature:     signature,
		SigningScheme: "eip712",
	})
	if err != nil {
		return fmt.Errorf("marshal cancellation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound, http.StatusGone:
		return ErrOrderGone
	default:
		return apiError(resp)
	}
}

// decorate stamps common headers, including a per-request id for tracing
// requests through the venue's support channels.
func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", "cowtrader/1.0")
	req.Header.Set("X-Request-Id", uuid.NewString())
}

// apiError surfaces the venue's diagnostic body alongside the status code.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
