// Package terminal is the HTTP client a till uses to drive its cart on the
// POS service.
package terminal

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

	"github.com/ridloal/punto-venta/internal/cart"
	"github.com/ridloal/punto-venta/internal/platform/logger"
	salesDomain "github.com/ridloal/punto-venta/internal/sales/domain"
)

// ErrNotFound is returned when the service has no product for a code.
var ErrNotFound = errors.New("product not found")

// APIError is a non-2xx answer from the POS service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pos service returned status %d", e.Status)
	}
	return fmt.Sprintf("pos service returned status %d - %s", e.Status, e.Message)
}

// CheckoutResult is the recorded sale plus the cart left behind.
type CheckoutResult struct {
	Sale salesDomain.Sale `json:"venta"`
	Cart cart.Snapshot    `json:"carrito"`
}

type Client interface {
	Cart(ctx context.Context) (*cart.Snapshot, error)
	Scan(ctx context.Context, code string) (*cart.Snapshot, error)
	Checkout(ctx context.Context) (*CheckoutResult, error)
}

type httpClient struct {
	BaseURL    string
	Terminal   string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPClient(baseURL, terminalID, token string, timeout time.Duration) Client {
	return &httpClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Terminal: terminalID,
		Token:    token,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *httpClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	reqURL := fmt.Sprintf("%s/api/v1/terminals/%s%s", c.BaseURL, url.PathEscape(c.Terminal), path)

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("TerminalClient: %s %s failed", method, path), err)
		return fmt.Errorf("failed to call pos service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *httpClient) Cart(ctx context.Context) (*cart.Snapshot, error) {
	var snap cart.Snapshot
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Scan adds one unit of the product with the given barcode. A code with no
// product yields ErrNotFound.
func (c *httpClient) Scan(ctx context.Context, code string) (*cart.Snapshot, error) {
	var snap cart.Snapshot
	err := c.do(ctx, http.MethodPost, "/cart/scan", map[string]string{"codigo": code}, &snap)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *httpClient) Checkout(ctx context.Context) (*CheckoutResult, error) {
	var res CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/checkout", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
