// Package jaeger provides a client for the Jaeger query HTTP API.
package jaeger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tracecheck/internal/models"
)

// Client implements HTTP interaction with the Jaeger query API to fetch traces and services.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Jaeger query client. A zero timeout leaves the
// http.Client default in place.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// envelope is the common shape of every Jaeger query API response.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// doRequest performs a GET against the query API and returns the raw body.
func (c *Client) doRequest(ctx context.Context, apiPath string, params url.Values) ([]byte, string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, c.baseURL, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = apiPath
	if params != nil {
		u.RawQuery = params.Encode()
	}
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, target, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Querying jaeger", "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, target, &models.TransportError{Op: http.MethodGet, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, target, &models.TransportError{Op: http.MethodGet, URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, target, &models.TransportError{Op: http.MethodGet, URL: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return body, target, nil
}

// decodeData extracts the "data" member of a response into out. A missing
// member is malformed; an explicit null leaves out untouched.
func decodeData(body []byte, target string, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &models.MalformedResponseError{Op: http.MethodGet, URL: target, Err: err}
	}
	if len(env.Data) == 0 {
		return &models.MalformedResponseError{Op: http.MethodGet, URL: target, Err: errors.New(`missing "data" field`)}
	}
	if bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &models.MalformedResponseError{Op: http.MethodGet, URL: target, Err: fmt.Errorf("decoding data: %w", err)}
	}
	return nil
}

// GetTraces fetches the traces of service recorded at or after since. extra
// carries optional filters (operation, limit, lookback, tags); it cannot
// override service or start.
func (c *Client) GetTraces(ctx context.Context, service string, since time.Time, extra url.Values) ([]Trace, error) {
	params := BuildTracesParams(service, since, extra)

	body, target, err := c.doRequest(ctx, "/api/traces", params)
	if err != nil {
		c.logger.Error("Failed to fetch traces", "service", service, "error", err)
		return nil, err
	}

	var traces []Trace
	if err := decodeData(body, target, &traces); err != nil {
		return nil, err
	}
	if traces == nil {
		traces = []Trace{}
	}

	c.logger.Debug("Fetched traces", "service", service, "count", len(traces))
	return traces, nil
}

// GetTraceByID fetches a single complete trace by its ID.
func (c *Client) GetTraceByID(ctx context.Context, traceID string) (*Trace, error) {
	body, target, err := c.doRequest(ctx, "/api/traces/"+url.PathEscape(traceID), nil)
	if err != nil {
		c.logger.Error("Failed to fetch trace by ID", "traceID", traceID, "error", err)
		return nil, err
	}

	var traces []Trace
	if err := decodeData(body, target, &traces); err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return nil, &models.MalformedResponseError{Op: http.MethodGet, URL: target, Err: fmt.Errorf("trace %s not in response", traceID)}
	}
	return &traces[0], nil
}

// GetServices fetches the names of every service the backend has seen.
func (c *Client) GetServices(ctx context.Context) (ServiceSet, error) {
	body, target, err := c.doRequest(ctx, "/api/services", nil)
	if err != nil {
		c.logger.Error("Failed to fetch services", "error", err)
		return nil, err
	}

	var names []string
	if err := decodeData(body, target, &names); err != nil {
		return nil, err
	}
	return NewServiceSet(names...), nil
}
