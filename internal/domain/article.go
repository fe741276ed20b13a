package domain

import (
	"strings"
	"time"
)

// Article is a raw record fetched from the content API. It lives only for
// the duration of a single pipeline run.
type Article struct {
	Title       string
	Content     string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

// removedTitle is what NewsAPI puts in place of articles taken down upstream.
const removedTitle = "[Removed]"

// HasTitle reports whether the article carries a usable title.
func (a Article) HasTitle() bool {
	title := strings.TrimSpace(a.Title)
	return title != "" && title != removedTitle
}

// FetchQuery carries the parameters of a single fetch against the content API.
type FetchQuery struct {
	Keyword string
	Since   time.Time
	APIKey  string
}

// Summary is the (title, summary) pair produced for one article.
type Summary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Valid reports whether the summary satisfies the storage invariant.
func (s Summary) Valid() bool {
	return strings.TrimSpace(s.Title) != "" && strings.TrimSpace(s.Summary) != ""
}

// SummaryRecord is a persisted summary row.
type SummaryRecord struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}
