package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestUsageReporterReportNowEmitsOneSummaryPerAccount(t *testing.T) {
	t.Parallel()

	pool, _, _ := newTestPool(t, "A", "B", "C")
	pool.RecordRequest("B")
	pool.RecordRequest("B")
	require.True(t, pool.RotateOnRateLimit(domain.StatusTooManyRequests))

	sink := &recordingSink{}
	reporter, err := NewUsageReporter(pool, sink, clockwork.NewFakeClockAt(testNow), time.Minute)
	require.NoError(t, err)

	reporter.ReportNow()

	assert.Equal(t, []domain.Event{
		{Kind: domain.EventUsageSummary, Label: "A", Usage: domain.AccountUsage{RateLimitHits: 1}, At: testNow},
		{Kind: domain.EventUsageSummary, Label: "B", Usage: domain.AccountUsage{Requests: 2}, At: testNow},
		{Kind: domain.EventUsageSummary, Label: "C", At: testNow},
	}, sink.Events())
}

func TestUsageReporterDefaultsInterval(t *testing.T) {
	t.Parallel()

	pool, _, _ := newTestPool(t, "A")
	reporter, err := NewUsageReporter(pool, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultReportInterval, reporter.Interval())
}

func TestUsageReporterStartStopLeaksNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool, _, _ := newTestPool(t, "A", "B")
	sink := &recordingSink{}
	reporter, err := NewUsageReporter(pool, sink, nil, time.Second)
	require.NoError(t, err)

	reporter.Start()

	require.Eventually(t, func() bool {
		return len(sink.Events()) >= 2
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, reporter.Stop(ctx))
}
