package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"voicetrader/src/model"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 4 * time.Second
)

var ErrSearchUnavailable = errors.New("search service not configured")

// Searcher is what the dispatcher needs from a web search backend.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// SearchClient calls a Tavily-compatible web search API.
type SearchClient struct {
	maxResults int
	http       *resty.Client
	log        *logger.Entry
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
	Detail string `json:"detail,omitempty"`
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 || code == 408 {
		return true
	}
	return false
}

// NewSearchClient returns nil, false when no API key is configured.
func NewSearchClient(cfg Config) (*SearchClient, bool) {
	log := logger.WithField("component", "search_client")
	if strings.TrimSpace(cfg.SearchAPIKey) == "" {
		log.Warn("SEARCH_API_KEY not set, web search disabled")
		return nil, false
	}

	baseURL := strings.TrimRight(cfg.SearchAPIURL, "/")
	timeout := cfg.SearchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxResults := cfg.SearchMaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts-1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp).
		SetAuthToken(cfg.SearchAPIKey).
		SetHeader("Content-Type", "application/json")

	return &SearchClient{
		maxResults: maxResults,
		http:       httpClient,
		log:        log,
	}, true
}

func (c *SearchClient) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if c == nil {
		return nil, ErrSearchUnavailable
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	if maxResults <= 0 {
		maxResults = c.maxResults
	}

	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(searchRequest{Query: query, MaxResults: maxResults}).
		SetResult(&out).
		SetError(&out).
		Post("/search")
	if err != nil {
		c.log.WithError(err).WithField("query", query).Error("search request failed")
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.IsError() {
		msg := out.Detail
		if msg == "" {
			msg = resp.Status()
		}
		c.log.WithFields(map[string]interface{}{
			"status": resp.StatusCode(),
			"query":  query,
		}).Error("search API returned an error")
		return nil, fmt.Errorf("search API: %s", msg)
	}

	results := make([]model.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, model.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}
