package newsapi

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/metrics"
)

const sampleResponse = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {
      "source": {"id": null, "name": "The Verge"},
      "title": "  First headline ",
      "description": "<p>Short <b>teaser</b></p>",
      "url": "https://example.com/1",
      "publishedAt": "2025-11-08T10:00:00Z",
      "content": "Body of the first article&amp;more… [+2345 chars]"
    },
    {
      "source": {"id": "wired", "name": "Wired"},
      "title": "",
      "description": null,
      "url": "https://example.com/2",
      "publishedAt": "not-a-date",
      "content": "ignored"
    },
    {
      "source": {"name": "BBC"},
      "title": "Third headline",
      "url": "https://example.com/3",
      "content": null
    }
  ]
}`

func newTestClient(t *testing.T, endpoint string) (*Client, *metrics.Pipeline, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	c := NewClient(config.NewsAPIConfig{Endpoint: endpoint, Timeout: 2 * time.Second}, logger, m)
	return c, m, &logs
}

func sampleQuery() domain.FetchQuery {
	return domain.FetchQuery{
		Keyword: "golang",
		Since:   time.Date(2025, time.November, 7, 0, 0, 0, 0, time.UTC),
		APIKey:  "secret-key",
	}
}

func TestFetchArticlesSendsQueryAndParses(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "golang", q.Get("q"))
		assert.Equal(t, "2025-11-07", q.Get("from"))
		assert.Equal(t, "popularity", q.Get("sortBy"))
		assert.Equal(t, "secret-key", q.Get("apiKey"))
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	c, m, _ := newTestClient(t, server.URL)
	articles := c.FetchArticles(context.Background(), sampleQuery())

	require.Len(t, articles, 3)

	first := articles[0]
	assert.Equal(t, "First headline", first.Title)
	assert.Equal(t, "Body of the first article&more", first.Content)
	assert.Equal(t, "Short teaser", first.Description)
	assert.Equal(t, "The Verge", first.Source)
	assert.Equal(t, 2025, first.PublishedAt.Year())

	assert.Equal(t, "", articles[1].Title)
	assert.True(t, articles[1].PublishedAt.IsZero())

	assert.Equal(t, "Third headline", articles[2].Title)
	assert.Equal(t, "", articles[2].Content)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ArticlesFetched))
}

func TestFetchArticlesMissingArticlesKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0}`))
	}))
	defer server.Close()

	c, _, _ := newTestClient(t, server.URL)
	articles := c.FetchArticles(context.Background(), sampleQuery())
	assert.NotNil(t, articles)
	assert.Empty(t, articles)
}

func TestFetchArticlesFailsSoft(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
			},
			reason: "status",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"articles": [`))
			},
			reason: "decode",
		},
		{
			name: "error payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
			},
			reason: "api_error",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tc.handler)
			defer server.Close()

			c, m, logs := newTestClient(t, server.URL)
			articles := c.FetchArticles(context.Background(), sampleQuery())

			assert.Empty(t, articles)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues(tc.reason)))
			assert.Contains(t, logs.String(), "fetch articles failed")
		})
	}
}

func TestFetchArticlesTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, m, logs := newTestClient(t, server.URL)
	c.http.Timeout = 50 * time.Millisecond

	articles := c.FetchArticles(context.Background(), sampleQuery())

	assert.Empty(t, articles)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("transport")))
	assert.NotContains(t, logs.String(), "secret-key")
}

func TestFetchArticlesRejectsEmptyInputsWithoutCalling(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	c, _, _ := newTestClient(t, server.URL)

	noKey := sampleQuery()
	noKey.APIKey = " "
	assert.Empty(t, c.FetchArticles(context.Background(), noKey))

	noKeyword := sampleQuery()
	noKeyword.Keyword = ""
	assert.Empty(t, c.FetchArticles(context.Background(), noKeyword))

	assert.Zero(t, calls)
}

func TestFetchArticlesWithoutLoggerOrMetrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(config.NewsAPIConfig{Endpoint: server.URL, Timeout: time.Second}, nil, nil)
	assert.Empty(t, c.FetchArticles(context.Background(), sampleQuery()))
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"Plain text", "Plain text"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"Cut here… [+1234 chars]", "Cut here"},
		{"Cut here... [+12 chars]", "Cut here"},
		{"<div>  Multiple \n spaces </div><script>x()</script>", "Multiple spaces"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, plainText(tt.input), "input %q", tt.input)
	}
}
