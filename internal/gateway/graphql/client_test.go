package graphql

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiswap/stats-api/internal/adapter"
)

type fakeHTTPClient struct {
	response []byte
	err      error

	lastURL     string
	lastBody    []byte
	lastHeaders map[string]string
}

func (c *fakeHTTPClient) Get(ctx context.Context, url string, result interface{}) error {
	return nil
}

func (c *fakeHTTPClient) PostWithHeaders(ctx context.Context, url string, contentType string, body io.Reader, headers map[string]string) ([]byte, error) {
	c.lastURL = url
	c.lastHeaders = headers
	if body != nil {
		c.lastBody, _ = io.ReadAll(body)
	}
	return c.response, c.err
}

func TestQueryDecodesDataField(t *testing.T) {
	httpClient := &fakeHTTPClient{
		response: []byte(`{"data":{"pairs":[{"id":"0xabc"}]}}`),
	}
	client := NewClient(httpClient, "https://graph.example.com", adapter.NewJSON(), map[string]string{"X-API-KEY": "secret"})

	var result struct {
		Pairs []struct {
			ID string `json:"id"`
		} `json:"pairs"`
	}
	err := client.Query(context.Background(), Request{Query: "{ pairs { id } }"}, &result)
	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, "0xabc", result.Pairs[0].ID)
	assert.Equal(t, "https://graph.example.com", httpClient.lastURL)
	assert.Equal(t, "secret", httpClient.lastHeaders["X-API-KEY"])
	assert.Contains(t, string(httpClient.lastBody), "pairs")
}

func TestQueryReturnsGraphQLErrors(t *testing.T) {
	httpClient := &fakeHTTPClient{
		response: []byte(`{"data":null,"errors":[{"message":"rate limit exceeded"}]}`),
	}
	client := NewClient(httpClient, "https://graph.example.com", adapter.NewJSON(), nil)

	var result struct{}
	err := client.Query(context.Background(), Request{Query: "{ pairs { id } }"}, &result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}
