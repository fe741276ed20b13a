package ports

import (
	"context"
	"time"

	"NewsSummarizer/internal/domain"
)

// ArticleSource pulls candidate articles from the content API. Failures are
// absorbed by the implementation and surface as an empty result.
type ArticleSource interface {
	FetchArticles(ctx context.Context, query domain.FetchQuery) []domain.Article
}

// TextGenerator runs a pretrained sequence-to-sequence model on input text.
type TextGenerator interface {
	Generate(ctx context.Context, text string, params domain.GenerationParams) (string, error)
}

// Summarizer turns article text into a bounded-length summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummaryStore persists (title, summary) pairs.
type SummaryStore interface {
	EnsureSchema(ctx context.Context) error
	Store(ctx context.Context, records []domain.Summary) error
	GetAll(ctx context.Context) ([]domain.SummaryRecord, error)
}

// SummaryReader is the read-only view consumed by presentation code.
type SummaryReader interface {
	GetAll(ctx context.Context) ([]domain.SummaryRecord, error)
}

// Notifier streams run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, message string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
