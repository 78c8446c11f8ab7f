package connectors

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchClientSearch(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"gold price outlook","max_results":3}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"title":"Gold","url":"https://example.com/gold","content":"Gold rallies"}]}`))
	}))
	defer server.Close()

	client, ok := NewSearchClient(Config{SearchAPIURL: server.URL, SearchAPIKey: "key-1", SearchTimeout: time.Second})
	require.True(t, ok)

	results, err := client.Search(context.Background(), "gold price outlook", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Gold", results[0].Title)
	assert.Equal(t, "Gold rallies", results[0].Snippet)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsRetryableResp(t *testing.T) {
	assert.True(t, isRetryableResp(nil, errors.New("connection reset")))
	assert.False(t, isRetryableResp(nil, nil))

	for code, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
	} {
		resp := &resty.Response{RawResponse: &http.Response{StatusCode: code}}
		assert.Equal(t, want, isRetryableResp(resp, nil), "status %d", code)
	}
}

func TestSearchClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer server.Close()

	client, ok := NewSearchClient(Config{SearchAPIURL: server.URL, SearchAPIKey: "bad"})
	require.True(t, ok)

	_, err := client.Search(context.Background(), "anything", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")

	_, err = client.Search(context.Background(), "  ", 0)
	require.Error(t, err)

	none, ok := NewSearchClient(Config{})
	assert.False(t, ok)
	_, err = none.Search(context.Background(), "x", 1)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}
