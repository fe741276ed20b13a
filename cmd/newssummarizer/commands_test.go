package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/infrastructure/storage"
)

func TestParseSinceDate(t *testing.T) {
	t.Parallel()

	got, err := parseSinceDate("2025-11-07", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.November, 7, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSinceDate(" 2025-01-31 ", nil)
	require.NoError(t, err)
	assert.Equal(t, 31, got.Day())

	for _, bad := range []string{"", "yesterday", "07/11/2025", "2025-13-01"} {
		_, err := parseSinceDate(bad, time.UTC)
		assert.Error(t, err, bad)
	}
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printReport(&buf, domain.RunReport{
		RunID:   "abc",
		Stage:   domain.StageAborted,
		Fetched: 3,
		Stored:  0,
		Err:     errors.New("store summaries: disk full"),
	})
	out := buf.String()
	assert.Contains(t, out, "run abc: aborted")
	assert.Contains(t, out, "fetched:    3")
	assert.Contains(t, out, "error:      store summaries: disk full")
}

func TestListCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "list.db")
	t.Setenv("NEWS_SUMMARIZER_CONFIG", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", dsn)
	t.Setenv("LOG_LEVEL", "error")

	ctx := context.Background()
	store, err := storage.Open(ctx, "sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Store(ctx, []domain.Summary{
		{Title: "First", Summary: "one"},
		{Title: "Second", Summary: "two"},
	}))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"list"})
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Less(t, strings.Index(text, "First"), strings.Index(text, "Second"))
	assert.Contains(t, text, "one")
}

func TestListCommandEmpty(t *testing.T) {
	t.Setenv("NEWS_SUMMARIZER_CONFIG", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "empty.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"list"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "No summaries stored yet.")
}

func TestRunCommandRequiresCredential(t *testing.T) {
	t.Setenv("NEWS_SUMMARIZER_CONFIG", "")
	t.Setenv("NEWSAPI_KEY", "")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "run.db"))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--query", "golang"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKey")
}
