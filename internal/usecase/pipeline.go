package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/logging"
	"NewsSummarizer/internal/metrics"
	"NewsSummarizer/internal/ports"
)

// ErrStore marks a run aborted because the batch write failed.
var ErrStore = errors.New("store summaries")

const notifyTimeout = 10 * time.Second

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Summarizer ports.Summarizer
	Store      ports.SummaryStore
	Notifier   ports.Notifier
	Metrics    *metrics.Pipeline
	Logger     *slog.Logger
	// APIKey is the content API credential used for every run.
	APIKey string
}

// Pipeline implements the fetch → filter → summarize → store workflow.
type Pipeline struct {
	source     ports.ArticleSource
	summarizer ports.Summarizer
	store      ports.SummaryStore
	notifier   ports.Notifier
	metrics    *metrics.Pipeline
	logger     *slog.Logger
	apiKey     string
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		source:     deps.Source,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     logger,
		apiKey:     deps.APIKey,
		now:        time.Now,
	}
}

// run is the per-execution state; it is discarded when Run returns.
type run struct {
	report    domain.RunReport
	query     domain.FetchQuery
	logger    *slog.Logger
	summaries []domain.Summary
}

func (r *run) enter(stage domain.RunStage, args ...any) {
	r.report.Stage = stage
	r.logger.Info("stage entered", append([]any{"stage", string(stage)}, args...)...)
}

// Run executes one pipeline pass for keyword with since as the inclusive
// lower bound on publication date. Fetch, filter and per-article
// summarization failures are absorbed; a failed batch write aborts the run
// and is returned as an error wrapping ErrStore.
func (p *Pipeline) Run(ctx context.Context, keyword string, since time.Time) (domain.RunReport, error) {
	started := p.now()
	r := &run{
		report: domain.RunReport{RunID: uuid.NewString(), Keyword: keyword},
		query:  domain.FetchQuery{Keyword: keyword, Since: since, APIKey: p.apiKey},
	}
	r.logger = p.logger.With("run_id", r.report.RunID)

	err := p.execute(ctx, r)
	if err != nil {
		r.report.Err = err
		r.enter(domain.StageAborted, "error", err)
	}

	p.metrics.RecordRun(string(r.report.Stage), p.now().Sub(started).Seconds())
	r.logger.Info("run finished",
		"stage", string(r.report.Stage),
		"fetched", r.report.Fetched,
		"retained", r.report.Retained,
		"summarized", r.report.Summarized,
		"skipped", r.report.Skipped,
		"stored", r.report.Stored,
		"duration", p.now().Sub(started))

	p.notify(ctx, r)
	return r.report, err
}

func (p *Pipeline) execute(ctx context.Context, r *run) error {
	if p.source == nil || p.summarizer == nil || p.store == nil {
		return fmt.Errorf("pipeline is not fully configured")
	}

	r.enter(domain.StageFetching, "query", r.query.Keyword, "since", r.query.Since.Format(time.DateOnly))
	articles := p.source.FetchArticles(ctx, r.query)
	r.report.Fetched = len(articles)
	if len(articles) == 0 {
		r.logger.Info("no articles fetched")
		r.enter(domain.StageDone)
		return nil
	}

	r.enter(domain.StageFiltering, "fetched", len(articles))
	retained := filterArticles(articles)
	r.report.Retained = len(retained)
	p.metrics.RecordFiltered(len(articles) - len(retained))
	if dropped := len(articles) - len(retained); dropped > 0 {
		r.logger.Info("articles discarded without title", "count", dropped)
	}

	r.enter(domain.StageSummarizing, "articles", len(retained))
	for i, article := range retained {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("summarize: %w", err)
		}

		summary, err := p.summarizer.Summarize(ctx, article.Content)
		if err != nil {
			r.report.Skipped++
			p.metrics.RecordSummary(false)
			r.logger.Warn("summarization failed, skipping article",
				"index", i,
				"title", article.Title,
				"error", err)
			continue
		}

		p.metrics.RecordSummary(true)
		r.summaries = append(r.summaries, domain.Summary{
			Title:   strings.TrimSpace(article.Title),
			Summary: summary,
		})
	}
	r.report.Summarized = len(r.summaries)

	if len(r.summaries) == 0 {
		r.logger.Info("nothing to store")
		r.enter(domain.StageDone)
		return nil
	}

	r.enter(domain.StageStoring, "records", len(r.summaries))
	if err := p.store.Store(ctx, r.summaries); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	r.report.Stored = len(r.summaries)
	p.metrics.RecordStored(len(r.summaries))

	r.enter(domain.StageDone)
	return nil
}

// filterArticles keeps articles with a usable title. Missing content is
// allowed; the summarizer substitutes a placeholder for it.
func filterArticles(articles []domain.Article) []domain.Article {
	retained := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if !article.HasTitle() {
			continue
		}
		retained = append(retained, article)
	}
	return retained
}

func (p *Pipeline) notify(ctx context.Context, r *run) {
	if p.notifier == nil || (r.report.Stored == 0 && r.report.Err == nil) {
		return
	}
	// The run context may already be cancelled when reporting an aborted run.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := p.notifier.PublishReport(notifyCtx, buildReportMessage(r.report, r.summaries)); err != nil {
		r.logger.Warn("publish run report failed", "error", err)
	}
}

func buildReportMessage(report domain.RunReport, summaries []domain.Summary) string {
	var b strings.Builder
	if report.Err != nil {
		fmt.Fprintf(&b, "Run %s for %q aborted: %v\n", report.RunID, report.Keyword, report.Err)
		return b.String()
	}

	fmt.Fprintf(&b, "Stored %d new summaries for %q (fetched %d, skipped %d)\n\n",
		report.Stored, report.Keyword, report.Fetched, report.Skipped)
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s\n%s\n\n", s.Title, s.Summary)
	}
	return b.String()
}
