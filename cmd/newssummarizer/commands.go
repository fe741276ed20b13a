package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"NewsSummarizer/internal/app"
	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/logging"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "newssummarizer",
		Short:        "Fetch news articles, summarize them and keep the summaries",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML config (defaults to $NEWS_SUMMARIZER_CONFIG)")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newListCmd(opts))
	return root
}

func (o *rootOptions) load() config.Config {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load()
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		query string
		since string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.load()
			if query != "" {
				cfg.NewsAPI.Query = query
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			application, err := app.New(ctx, cfg, logging.New(cfg.Logging.Level))
			if err != nil {
				return err
			}
			defer application.Close()

			from := application.DefaultSince()
			if since != "" {
				from, err = parseSinceDate(since, cfg.Scheduler.Location())
				if err != nil {
					return err
				}
			}

			report, runErr := application.RunOnce(ctx, cfg.NewsAPI.Query, from)
			printReport(cmd.OutOrStdout(), report)
			return runErr
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "keyword to search for (overrides newsapi.query)")
	cmd.Flags().StringVar(&since, "since", "", "earliest publication date, YYYY-MM-DD (defaults to today minus lookbackDays)")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on its cron schedule and serve summaries over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.load()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			application, err := app.New(ctx, cfg, logging.New(cfg.Logging.Level))
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(ctx)
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print stored summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.load()
			application, err := app.New(cmd.Context(), cfg, logging.New(cfg.Logging.Level))
			if err != nil {
				return err
			}
			defer application.Close()

			records, err := application.Summaries(cmd.Context())
			if err != nil {
				return err
			}
			printSummaries(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func parseSinceDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want YYYY-MM-DD", value)
	}
	return t, nil
}

func printReport(w io.Writer, report domain.RunReport) {
	fmt.Fprintf(w, "run %s: %s\n", report.RunID, report.Stage)
	fmt.Fprintf(w, "  fetched:    %d\n", report.Fetched)
	fmt.Fprintf(w, "  retained:   %d\n", report.Retained)
	fmt.Fprintf(w, "  summarized: %d\n", report.Summarized)
	fmt.Fprintf(w, "  skipped:    %d\n", report.Skipped)
	fmt.Fprintf(w, "  stored:     %d\n", report.Stored)
	if report.Err != nil {
		fmt.Fprintf(w, "  error:      %v\n", report.Err)
	}
}

func printSummaries(w io.Writer, records []domain.SummaryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No summaries stored yet.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "#%d  %s  %s\n    %s\n\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Title, r.Summary)
	}
}
