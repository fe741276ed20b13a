package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/logging"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
)

const (
	sortByPopularity = "popularity"
	maxBodyBytes     = 4 << 20
	defaultTimeout   = 15 * time.Second
)

// Client queries the NewsAPI "everything" search endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
	metrics  *metrics.Pipeline
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.NewsAPIConfig, log *slog.Logger, m *metrics.Pipeline) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
		metrics:  m,
	}
}

type searchResponse struct {
	Status   string       `json:"status"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// fetchError tags a failure with the metric reason it is reported under.
type fetchError struct {
	reason string
	err    error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

// FetchArticles issues a single search request. Every failure is logged and
// reported as an empty result; the order of the upstream response is kept.
func (c *Client) FetchArticles(ctx context.Context, query domain.FetchQuery) []domain.Article {
	articles, err := c.fetch(ctx, query)
	if err != nil {
		reason := "unknown"
		var fe *fetchError
		if errors.As(err, &fe) {
			reason = fe.reason
		}
		c.metrics.RecordFetchFailure(reason)
		c.logger.Error("fetch articles failed",
			"reason", reason,
			"query", query.Keyword,
			"error", redact(err, query.APIKey))
		return []domain.Article{}
	}

	c.metrics.RecordFetched(len(articles))
	c.logger.Debug("articles fetched", "query", query.Keyword, "count", len(articles))
	return articles
}

func (c *Client) fetch(ctx context.Context, query domain.FetchQuery) ([]domain.Article, error) {
	if c.http == nil || c.endpoint == "" {
		return nil, &fetchError{reason: "config", err: fmt.Errorf("newsapi client misconfigured")}
	}
	if strings.TrimSpace(query.APIKey) == "" {
		return nil, &fetchError{reason: "invalid_query", err: fmt.Errorf("api key is empty")}
	}
	if strings.TrimSpace(query.Keyword) == "" {
		return nil, &fetchError{reason: "invalid_query", err: fmt.Errorf("search keyword is empty")}
	}

	reqURL, err := c.buildURL(query)
	if err != nil {
		return nil, &fetchError{reason: "config", err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &fetchError{reason: "config", err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsSummarizer/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &fetchError{reason: "transport", err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &fetchError{reason: "transport", err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &fetchError{reason: "status", err: fmt.Errorf("unexpected status %s: %s", resp.Status, snippet(body))}
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &fetchError{reason: "decode", err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Status == "error" {
		return nil, &fetchError{reason: "api_error", err: fmt.Errorf("newsapi error %s: %s", payload.Code, payload.Message)}
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		articles = append(articles, toDomain(item))
	}
	return articles, nil
}

func (c *Client) buildURL(query domain.FetchQuery) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	params := u.Query()
	params.Set("q", query.Keyword)
	if !query.Since.IsZero() {
		params.Set("from", query.Since.Format(time.DateOnly))
	}
	params.Set("sortBy", sortByPopularity)
	params.Set("apiKey", query.APIKey)
	u.RawQuery = params.Encode()

	return u.String(), nil
}

func toDomain(item apiArticle) domain.Article {
	published, _ := time.Parse(time.RFC3339, item.PublishedAt)
	return domain.Article{
		Title:       strings.TrimSpace(item.Title),
		Content:     plainText(item.Content),
		Description: plainText(item.Description),
		URL:         item.URL,
		Source:      item.Source.Name,
		PublishedAt: published,
	}
}

// redact strips the credential from error text; url.Error embeds the full
// request URL, query string included.
func redact(err error, secret string) string {
	msg := err.Error()
	if secret == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(secret), "REDACTED")
	return strings.ReplaceAll(msg, secret, "REDACTED")
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
