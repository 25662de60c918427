package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ridloal/punto-venta/internal/platform/logger"
)

// StoreError is the error body PostgREST returns for failed requests.
type StoreError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store returned status %d", e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

const (
	CodeUniqueViolation = "23505"
	CodeNoRows          = "PGRST116"
)

// IsCode reports whether err is a StoreError with the given code.
func IsCode(err error, code string) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == code
}

// Client talks to the /rest/v1 endpoint of a Supabase project.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(projectURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(projectURL, "/") + "/rest/v1",
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request describes one call against a table.
type Request struct {
	Method string
	Table  string
	Query  url.Values
	Body   interface{}
	Prefer []string
}

// Do executes req and decodes a 2xx JSON body into out when out is not nil.
// The response headers are returned for callers reading Content-Range.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) (http.Header, error) {
	reqURL := c.BaseURL + "/" + req.Table
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", req.Table, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to store: %w", err)
	}
	httpReq.Header.Set("apikey", c.APIKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if len(req.Prefer) > 0 {
		httpReq.Header.Set("Prefer", strings.Join(req.Prefer, ","))
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		logger.Error(fmt.Sprintf("postgrest: %s %s failed", req.Method, req.Table), err)
		return nil, fmt.Errorf("failed to call store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StoreError{Status: resp.StatusCode}
		// A body that does not decode still leaves the status in the error.
		_ = json.NewDecoder(resp.Body).Decode(se)
		return resp.Header, se
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("failed to decode %s response: %w", req.Table, err)
		}
	}
	return resp.Header, nil
}

// TotalCount extracts the total from a Content-Range header such as
// "0-24/573" or "*/0". It returns -1 when the total is unknown.
func TotalCount(h http.Header) int64 {
	cr := h.Get("Content-Range")
	i := strings.LastIndex(cr, "/")
	if i < 0 {
		return -1
	}
	n, err := strconv.ParseInt(cr[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Eq builds a PostgREST equality filter value.
func Eq(v string) string { return "eq." + v }

// Quote wraps a filter value in double quotes so reserved characters like
// commas and parentheses are taken literally.
func Quote(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}
