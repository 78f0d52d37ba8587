// Package graphql provides a minimal GraphQL-over-HTTP client shared
// by the subgraph and bitquery gateways.
package graphql

import (
	"bytes"
	"context"
	"fmt"

	"github.com/digiswap/stats-api/internal/adapter"
)

// Request represents a GraphQL request body.
type Request struct {
	Query         string      `json:"query"`
	Variables     interface{} `json:"variables,omitempty"`
	OperationName string      `json:"operationName,omitempty"`
}

type responseError struct {
	Message string `json:"message"`
}

type envelope struct {
	Data   interface{}     `json:"data"`
	Errors []responseError `json:"errors"`
}

// Client executes GraphQL queries against a fixed endpoint.
type Client interface {
	// Query posts the request and decodes the response's data field
	// into result. GraphQL-level errors are returned as Go errors.
	Query(ctx context.Context, req Request, result interface{}) error
}

type client struct {
	httpClient adapter.HTTPClient
	url        string
	json       adapter.JSON
	headers    map[string]string
}

// NewClient creates a client for the given endpoint. Extra headers are
// sent on every request, which bitquery uses for its API key.
func NewClient(httpClient adapter.HTTPClient, url string, json adapter.JSON, headers map[string]string) Client {
	return &client{
		httpClient: httpClient,
		url:        url,
		json:       json,
		headers:    headers,
	}
}

func (c *client) Query(ctx context.Context, req Request, result interface{}) error {
	requestBody, err := c.json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	responseBody, err := c.httpClient.PostWithHeaders(ctx, c.url, "application/json", bytes.NewReader(requestBody), c.headers)
	if err != nil {
		return fmt.Errorf("failed to call GraphQL endpoint: %w", err)
	}

	resp := envelope{Data: result}
	if err := c.json.Unmarshal(responseBody, &resp); err != nil {
		return fmt.Errorf("failed to unmarshal GraphQL response: %w", err)
	}

	if len(resp.Errors) > 0 {
		return fmt.Errorf("GraphQL query failed: %s", resp.Errors[0].Message)
	}

	return nil
}
