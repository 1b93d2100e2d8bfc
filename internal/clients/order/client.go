// Package order provides the stimulus client for the demo order-processing service.
package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tracecheck/internal/models"
)

// OrderPath is the endpoint that places a new order.
const OrderPath = "/order"

// Client wraps order-processing service calls
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a new order-processing client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// PostOrder places an order with an empty text body and returns the HTTP
// status. The status is logged but not judged; a run passes or fails on the
// traces the order produces. Connection failures are not retried.
func (c *Client) PostOrder(ctx context.Context) (int, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = OrderPath
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(""))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, &models.TransportError{Op: http.MethodPost, URL: target, Err: err}
	}
	defer resp.Body.Close()

	// Drain so the connection can be released cleanly.
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("Response status", "status", resp.StatusCode, "url", target)
	return resp.StatusCode, nil
}
