package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/digiswap/stats-api/internal/logger"
)

// HTTPClient is the outbound HTTP surface the gateways and list fetchers
// depend on. Rate-limited responses are retried transparently.
type HTTPClient interface {
	// Get fetches a JSON document into result
	Get(ctx context.Context, url string, result interface{}) error

	// PostWithHeaders posts a body with extra headers and returns the
	// response body
	PostWithHeaders(ctx context.Context, url string, contentType string, body io.Reader, headers map[string]string) ([]byte, error)
}

type httpClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTP client with the given per-request timeout
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &httpClient{
		client: &http.Client{Timeout: timeout},
	}
}

// retryPolicy retries 429s for up to a minute with jittered exponential
// backoff; other failures are classified inside the operation.
func retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

func (c *httpClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	var payload []byte

	operation := func() error {
		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body",
					zap.String("url", req.URL.String()), zap.Error(err))
			}
		}()

		if resp.StatusCode == http.StatusTooManyRequests {
			logger.Warn("rate limited, backing off", zap.String("url", req.URL.String()))
			return fmt.Errorf("rate limited by %s", req.URL.Host)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body)))
		}

		payload, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy(), ctx)); err != nil {
		return nil, fmt.Errorf("request failed after retries: %w", err)
	}
	return payload, nil
}

func (c *httpClient) Get(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	payload, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *httpClient) PostWithHeaders(ctx context.Context, url string, contentType string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.do(ctx, req)
}
