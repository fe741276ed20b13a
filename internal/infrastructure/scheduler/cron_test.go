package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsSummarizer/internal/logging"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate("0 6 * * *"))
	assert.NoError(t, Validate("@daily"))
	assert.Error(t, Validate("every morning"))
	assert.Error(t, Validate("0 6 * *"))
}

func TestStartRejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron", time.UTC, logging.Discard())
	err := s.Start(context.Background(), func(time.Time) {})
	assert.Error(t, err)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 6 * * *", nil, logging.Discard())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, func(time.Time) {}))
	require.NoError(t, s.Start(ctx, func(time.Time) {}))
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestNilJobIsIgnored(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 6 * * *", time.UTC, logging.Discard())
	require.NoError(t, s.Start(context.Background(), nil))
	assert.Nil(t, s.cron)
}

func TestJobReceivesTriggerInLocation(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	var (
		fired   atomic.Int32
		trigger atomic.Value
	)
	s := NewCronScheduler("@every 1s", tokyo, logging.Discard())
	require.NoError(t, s.Start(context.Background(), func(at time.Time) {
		trigger.Store(at)
		fired.Add(1)
	}))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.Eventually(t, func() bool { return fired.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, tokyo, trigger.Load().(time.Time).Location())
}

func TestCancelledContextStopsScheduler(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewCronScheduler("0 6 * * *", time.UTC, logging.Discard())
	require.NoError(t, s.Start(ctx, func(time.Time) {}))

	cancel()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cron == nil
	}, time.Second, 10*time.Millisecond)
}
