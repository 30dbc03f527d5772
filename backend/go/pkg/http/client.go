package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/circuitbreaker"
)

// Client wraps http.Client with an optional circuit breaker. Outbound webhook
// notifications go through it so a dead endpoint stops costing a timeout per alert.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a Client. The breaker is only installed when cfg.Enabled.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if !cfg.Enabled {
		return c, nil
	}
	breaker, err := circuitbreaker.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	c.breaker = breaker
	return c, nil
}

// Do executes req. With a breaker installed, transport errors and status codes >= 500 count as failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// PostJSON encodes body as JSON, posts it to url and fails on any non-2xx response.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
